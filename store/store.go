// Package store holds the persistence layer: the Store interface over the
// document database, its Mongo and in-memory implementations, and the
// mutation coordinator that keeps multi-document writes atomic.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/perchsocial/perch/models"
)

// Store is the persistence contract the coordinator and controllers run on.
// Every method wraps its error in the package taxonomy; lookups return
// ErrNotFound when the document is absent.
//
// InTransaction runs fn inside a store transaction scope with a bounded
// lifetime: fn's writes commit together or not at all, and any error from fn
// (or a timeout / caller cancellation) aborts the scope before it surfaces.
type Store interface {
	// Users
	InsertUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UserByProviderID(ctx context.Context, providerID string) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	UpdateUserProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) error
	AddFollower(ctx context.Context, userID, followerID primitive.ObjectID) error
	RemoveFollower(ctx context.Context, userID, followerID primitive.ObjectID) error
	AddFollowing(ctx context.Context, userID, targetID primitive.ObjectID) error
	RemoveFollowing(ctx context.Context, userID, targetID primitive.ObjectID) error

	// Posts
	InsertPost(ctx context.Context, p *models.Post) error
	PostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	PostsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Post, error)
	DeletePost(ctx context.Context, id primitive.ObjectID) error
	PushPostComment(ctx context.Context, postID, commentID primitive.ObjectID) error
	PullPostComment(ctx context.Context, postID, commentID primitive.ObjectID) error
	AddPostLike(ctx context.Context, postID, userID primitive.ObjectID) error
	RemovePostLike(ctx context.Context, postID, userID primitive.ObjectID) error

	// Comments
	InsertComment(ctx context.Context, c *models.Comment) error
	CommentByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	CommentsByPost(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error)
	CommentsByPosts(ctx context.Context, postIDs []primitive.ObjectID) ([]models.Comment, error)
	DeleteComment(ctx context.Context, id primitive.ObjectID) error
	DeleteCommentsByPost(ctx context.Context, postID primitive.ObjectID) error

	// Notifications
	InsertNotification(ctx context.Context, n *models.Notification) error
	NotificationByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	NotificationsFor(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
	DeleteNotification(ctx context.Context, id primitive.ObjectID) error
	DeleteNotificationsByComment(ctx context.Context, commentID primitive.ObjectID) error
	DeleteNotificationsByPost(ctx context.Context, postID primitive.ObjectID) error

	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

var (
	_ Store = (*Mongo)(nil)
	_ Store = (*Memory)(nil)
)
