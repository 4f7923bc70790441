package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/perchsocial/perch/cache"
	"github.com/perchsocial/perch/models"
	"github.com/perchsocial/perch/store"
	"github.com/perchsocial/perch/utils"
)

// UserController handles profile reads, identity sync and the follow edge.
type UserController struct {
	store       store.Store
	coordinator *store.Coordinator
	cache       *cache.Cache
}

// NewUserController creates a new UserController instance.
func NewUserController(st store.Store, coord *store.Coordinator, c *cache.Cache) *UserController {
	return &UserController{store: st, coordinator: coord, cache: c}
}

type updateProfileRequest struct {
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Bio            *string `json:"bio"`
	Location       *string `json:"location"`
	ProfilePicture *string `json:"profile_picture"`
	BannerImage    *string `json:"banner_image"`
}

// GetUserProfile returns the public profile for a username.
func (u *UserController) GetUserProfile(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.Param("username"))
	if username == "" {
		utils.FromError(ctx, store.InvalidInput("missing username"))
		return
	}
	user, err := u.store.UserByUsername(ctx.Request.Context(), username)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// SyncUser mirrors the identity-provider account into the local user
// collection. The first call creates the user; later calls are a no-op that
// reports the existing record.
func (u *UserController) SyncUser(ctx *gin.Context) {
	claims, ok := identityClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	existing, err := u.store.UserByProviderID(ctx.Request.Context(), claims.Subject)
	if err == nil {
		utils.Success(ctx, gin.H{"message": "user already exists", "user": existing})
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		utils.FromError(ctx, err)
		return
	}

	username, err := u.ensureUniqueUsername(ctx, usernameFromEmail(claims.Email))
	if err != nil {
		utils.FromError(ctx, err)
		return
	}

	now := time.Now()
	user := &models.User{
		ID:             primitive.NewObjectID(),
		ProviderID:     claims.Subject,
		Email:          claims.Email,
		Username:       username,
		FirstName:      claims.FirstName,
		LastName:       claims.LastName,
		ProfilePicture: claims.ImageURL,
		Followers:      []primitive.ObjectID{},
		Following:      []primitive.ObjectID{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := u.store.InsertUser(ctx.Request.Context(), user); err != nil {
		utils.FromError(ctx, err)
		return
	}

	utils.Success(ctx, gin.H{"message": "user created", "user": user})
}

// GetCurrentUser returns the caller's own record.
func (u *UserController) GetCurrentUser(ctx *gin.Context) {
	user, ok := currentUser(ctx, u.store)
	if !ok {
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// UpdateProfile applies a partial profile edit. Absent fields are untouched.
func (u *UserController) UpdateProfile(ctx *gin.Context) {
	user, ok := currentUser(ctx, u.store)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	upd := models.ProfileUpdate{
		FirstName:      sanitizeField(req.FirstName),
		LastName:       sanitizeField(req.LastName),
		Bio:            sanitizeField(req.Bio),
		Location:       sanitizeField(req.Location),
		ProfilePicture: trimField(req.ProfilePicture),
		BannerImage:    trimField(req.BannerImage),
	}
	if upd.Empty() {
		utils.FromError(ctx, store.InvalidInput("no profile fields to update"))
		return
	}

	if err := u.store.UpdateUserProfile(ctx.Request.Context(), user.ID, upd); err != nil {
		utils.FromError(ctx, err)
		return
	}

	updated, err := u.store.UserByID(ctx.Request.Context(), user.ID)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}

	u.cache.InvalidateByPrefix(cache.KeyPostsList)
	u.cache.InvalidateByPrefix(cache.KeyPostDetail)
	u.cache.InvalidateByPrefix(cache.KeyUserPosts + updated.Username)

	utils.Success(ctx, gin.H{"user": updated})
}

// FollowUser toggles the follow edge between the caller and the target.
func (u *UserController) FollowUser(ctx *gin.Context) {
	user, ok := currentUser(ctx, u.store)
	if !ok {
		return
	}
	targetID, ok := objectIDParam(ctx, "targetUserId")
	if !ok {
		return
	}

	following, err := u.coordinator.FollowUser(ctx.Request.Context(), user.ID, targetID)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}

	if following {
		utils.Success(ctx, gin.H{"message": "user followed"})
		return
	}
	utils.Success(ctx, gin.H{"message": "user unfollowed"})
}

// ensureUniqueUsername appends a numeric suffix until no existing user claims
// the name.
func (u *UserController) ensureUniqueUsername(ctx *gin.Context, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		_, err := u.store.UserByUsername(ctx.Request.Context(), candidate)
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.ToLower(strings.TrimSpace(local))
	if local == "" {
		local = "user"
	}
	return local
}

func sanitizeField(s *string) *string {
	if s == nil {
		return nil
	}
	v := utils.SanitizeText(strings.TrimSpace(*s))
	return &v
}

func trimField(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
