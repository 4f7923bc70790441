package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/perchsocial/perch/cache"
	"github.com/perchsocial/perch/store"
	"github.com/perchsocial/perch/utils"
)


// CommentController serves comment reads and routes comment writes through
// the coordinator so the post back-reference and notifications stay in step.
type CommentController struct {
	store       store.Store
	coordinator *store.Coordinator
	cache       *cache.Cache
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(st store.Store, coord *store.Coordinator, c *cache.Cache) *CommentController {
	return &CommentController{store: st, coordinator: coord, cache: c}
}

type createCommentRequest struct {
	Content string `json:"content"`
}

// GetComments returns a post's comments, newest first, with authors embedded.
func (cc *CommentController) GetComments(ctx *gin.Context) {
	postID, ok := objectIDParam(ctx, "postId")
	if !ok {
		return
	}
	if _, err := cc.store.PostByID(ctx.Request.Context(), postID); err != nil {
		utils.FromError(ctx, err)
		return
	}
	comments, err := cc.store.CommentsByPost(ctx.Request.Context(), postID)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}
	views, err := buildCommentViews(ctx.Request.Context(), cc.store, comments)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"comments": views})
}

// CreateComment adds a comment to a post.
func (cc *CommentController) CreateComment(ctx *gin.Context) {
	user, ok := currentUser(ctx, cc.store)
	if !ok {
		return
	}
	postID, ok := objectIDParam(ctx, "postId")
	if !ok {
		return
	}

	var req createCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	content := utils.Sanitize(strings.TrimSpace(req.Content))

	comment, err := cc.coordinator.CreateComment(ctx.Request.Context(), user.ID, postID, content)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}

	invalidatePostCaches(ctx, cc.store, cc.cache, postID)

	utils.Success(ctx, gin.H{"comment": CommentView{Comment: *comment, Author: user.Summary()}})
}

// DeleteComment removes the caller's comment along with the post
// back-reference and any notification it raised.
func (cc *CommentController) DeleteComment(ctx *gin.Context) {
	user, ok := currentUser(ctx, cc.store)
	if !ok {
		return
	}
	commentID, ok := objectIDParam(ctx, "commentId")
	if !ok {
		return
	}

	comment, err := cc.store.CommentByID(ctx.Request.Context(), commentID)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}

	if err := cc.coordinator.DeleteComment(ctx.Request.Context(), user.ID, commentID); err != nil {
		utils.FromError(ctx, err)
		return
	}

	invalidatePostCaches(ctx, cc.store, cc.cache, comment.PostID)

	utils.Success(ctx, gin.H{"message": "comment deleted"})
}
