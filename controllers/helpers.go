package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/perchsocial/perch/cache"
	"github.com/perchsocial/perch/middleware"
	"github.com/perchsocial/perch/models"
	"github.com/perchsocial/perch/store"
	"github.com/perchsocial/perch/utils"
)

// invalidatePostCaches drops every cached view a post mutation can go stale
// through: the global list, the post's detail, and the author's feed. The
// author lookup is skipped when no cache is wired.
func invalidatePostCaches(ctx *gin.Context, st store.Store, c *cache.Cache, postID primitive.ObjectID) {
	if c == nil {
		return
	}
	c.InvalidateByPrefix(cache.KeyPostsList)
	c.InvalidateByPrefix(cache.KeyPostDetail + postID.Hex())
	post, err := st.PostByID(ctx.Request.Context(), postID)
	if err != nil {
		return
	}
	author, err := st.UserByID(ctx.Request.Context(), post.UserID)
	if err != nil {
		return
	}
	c.InvalidateByPrefix(cache.KeyUserPosts + author.Username)
}

// currentUser resolves the authenticated caller to a local user. A verified
// token without a synced user yields 404; clients call /users/sync first.
func currentUser(ctx *gin.Context, st store.Store) (*models.User, bool) {
	pid, ok := providerID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return nil, false
	}
	user, err := st.UserByProviderID(ctx.Request.Context(), pid)
	if err != nil {
		utils.FromError(ctx, err)
		return nil, false
	}
	return user, true
}

func providerID(ctx *gin.Context) (string, bool) {
	value, exists := ctx.Get(middleware.ContextProviderIDKey)
	if !exists {
		return "", false
	}
	pid, ok := value.(string)
	return pid, ok && pid != ""
}

func identityClaims(ctx *gin.Context) (*utils.IdentityClaims, bool) {
	value, exists := ctx.Get(middleware.ContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*utils.IdentityClaims)
	return claims, ok
}

// objectIDParam parses a path parameter as an ObjectID; malformed ids are
// invalid input, not 404s.
func objectIDParam(ctx *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(ctx.Param(name))
	if err != nil {
		utils.FromError(ctx, store.InvalidInput("invalid "+name))
		return primitive.NilObjectID, false
	}
	return id, true
}
