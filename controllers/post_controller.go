package controllers

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/perchsocial/perch/cache"
	"github.com/perchsocial/perch/media"
	"github.com/perchsocial/perch/models"
	"github.com/perchsocial/perch/store"
	"github.com/perchsocial/perch/utils"
)

// PostController manages the post read and write surface. Multi-document
// mutations go through the coordinator; the controller itself only validates,
// shapes responses and keeps the cache honest.
type PostController struct {
	store       store.Store
	coordinator *store.Coordinator
	uploader    media.Uploader
	cache       *cache.Cache
}

// NewPostController creates a new PostController instance.
func NewPostController(st store.Store, coord *store.Coordinator, uploader media.Uploader, c *cache.Cache) *PostController {
	return &PostController{store: st, coordinator: coord, uploader: uploader, cache: c}
}

// ListPosts returns every post, newest first, with authors and comments embedded.
func (p *PostController) ListPosts(ctx *gin.Context) {
	if b, ok := p.cache.GetBytes(cache.KeyPostsList); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	posts, err := p.store.ListPosts(ctx.Request.Context())
	if err != nil {
		utils.FromError(ctx, err)
		return
	}
	views, err := buildPostViews(ctx.Request.Context(), p.store, posts)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}

	payload := gin.H{"posts": views}
	p.cache.SetJSON(cache.KeyPostsList, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	utils.Success(ctx, payload)
}

// GetPost returns a single post with comments. Missing posts are a 404, not
// the 200-with-message shape older clients may remember.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID, ok := objectIDParam(ctx, "postId")
	if !ok {
		return
	}

	key := cache.KeyPostDetail + postID.Hex()
	if b, ok := p.cache.GetBytes(key); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	post, err := p.store.PostByID(ctx.Request.Context(), postID)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}
	views, err := buildPostViews(ctx.Request.Context(), p.store, []models.Post{*post})
	if err != nil {
		utils.FromError(ctx, err)
		return
	}

	payload := gin.H{"post": views[0]}
	p.cache.SetJSON(key, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	utils.Success(ctx, payload)
}

// ListUserPosts returns posts authored by the named user.
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.Param("username"))
	if username == "" {
		utils.FromError(ctx, store.InvalidInput("missing username"))
		return
	}

	key := cache.KeyUserPosts + username
	if b, ok := p.cache.GetBytes(key); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	user, err := p.store.UserByUsername(ctx.Request.Context(), username)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}
	posts, err := p.store.PostsByUser(ctx.Request.Context(), user.ID)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}
	views, err := buildPostViews(ctx.Request.Context(), p.store, posts)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}

	payload := gin.H{"posts": views}
	p.cache.SetJSON(key, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	utils.Success(ctx, payload)
}

// CreatePost creates a post from a multipart form: optional "content" text
// plus up to 10 "files". Attachments pass straight through to the media host;
// a failed upload aborts the whole request and nothing is stored.
func (p *PostController) CreatePost(ctx *gin.Context) {
	user, ok := currentUser(ctx, p.store)
	if !ok {
		return
	}

	// The length cap counts characters of what the user typed, before
	// sanitization escapes entities.
	raw := strings.TrimSpace(ctx.PostForm("content"))
	if utf8.RuneCountInString(raw) > models.MaxPostContentLength {
		utils.FromError(ctx, store.InvalidInput("post content exceeds 1000 characters"))
		return
	}
	content := utils.Sanitize(raw)

	form, err := ctx.MultipartForm()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	files := form.File["files"]

	if content == "" && len(files) == 0 {
		utils.FromError(ctx, store.InvalidInput("content or files are required when creating a post"))
		return
	}

	attachments := make([]models.Attachment, 0, len(files))
	for _, fh := range files {
		mimeType := fh.Header.Get("Content-Type")
		kind, ok := media.KindForMime(mimeType)
		if !ok {
			utils.FromError(ctx, store.InvalidInput("invalid file type"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40021, "unreadable file upload")
			return
		}
		upload, err := p.uploader.Upload(ctx.Request.Context(), f, media.UploadInput{
			Filename: fh.Filename,
			MimeType: mimeType,
			Kind:     kind,
			Size:     fh.Size,
		})
		f.Close()
		if err != nil {
			utils.FromError(ctx, err)
			return
		}
		attachments = append(attachments, models.Attachment{
			URL:          upload.URL,
			Kind:         kind,
			Filename:     fh.Filename,
			Size:         fh.Size,
			MimeType:     mimeType,
			DeleteHandle: upload.DeleteHandle,
		})
	}

	now := time.Now()
	post := &models.Post{
		ID:          primitive.NewObjectID(),
		UserID:      user.ID,
		Content:     content,
		Attachments: attachments,
		Likes:       []primitive.ObjectID{},
		Comments:    []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.store.InsertPost(ctx.Request.Context(), post); err != nil {
		utils.FromError(ctx, err)
		return
	}

	p.cache.InvalidateByPrefix(cache.KeyPostsList)
	p.cache.InvalidateByPrefix(cache.KeyUserPosts + user.Username)

	utils.Success(ctx, gin.H{"post": PostView{Post: *post, Author: user.Summary(), Comments: []CommentView{}}})
}

// LikePost toggles the caller's like on a post.
func (p *PostController) LikePost(ctx *gin.Context) {
	user, ok := currentUser(ctx, p.store)
	if !ok {
		return
	}
	postID, ok := objectIDParam(ctx, "postId")
	if !ok {
		return
	}

	liked, err := p.coordinator.LikePost(ctx.Request.Context(), user.ID, postID)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}

	invalidatePostCaches(ctx, p.store, p.cache, postID)

	if liked {
		utils.Success(ctx, gin.H{"message": "post liked"})
		return
	}
	utils.Success(ctx, gin.H{"message": "post unliked"})
}

// DeletePost deletes the caller's post. Media blobs are destroyed best-effort
// first; the store cascade (comments, notifications, post) is atomic and
// proceeds even when the media host refuses.
func (p *PostController) DeletePost(ctx *gin.Context) {
	user, ok := currentUser(ctx, p.store)
	if !ok {
		return
	}
	postID, ok := objectIDParam(ctx, "postId")
	if !ok {
		return
	}

	post, err := p.store.PostByID(ctx.Request.Context(), postID)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}
	if post.UserID != user.ID {
		utils.FromError(ctx, store.Forbidden("not authorized to delete this post"))
		return
	}

	for _, att := range post.Attachments {
		if att.DeleteHandle == "" {
			continue
		}
		if err := p.uploader.Destroy(ctx.Request.Context(), att.DeleteHandle, att.Kind); err != nil {
			utils.Sugar.Warnw("media cleanup failed", "post", post.ID.Hex(), "handle", att.DeleteHandle, "err", err)
		}
	}

	if err := p.coordinator.DeletePost(ctx.Request.Context(), user.ID, post.ID); err != nil {
		utils.FromError(ctx, err)
		return
	}

	p.cache.InvalidateByPrefix(cache.KeyPostsList)
	p.cache.InvalidateByPrefix(cache.KeyPostDetail + postID.Hex())
	p.cache.InvalidateByPrefix(cache.KeyUserPosts + user.Username)

	utils.Success(ctx, gin.H{"message": "post deleted"})
}
