package store

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/perchsocial/perch/models"
)

// Coordinator orchestrates every mutation that spans more than one document.
// Comment creation/deletion and post deletion run inside a store transaction
// so readers never observe a post referencing a dead comment or a comment
// orphaned from its post. Like and follow notifications are deliberately
// written outside the transaction: losing one degrades nothing, unlike a
// dangling comment reference.
type Coordinator struct {
	store Store
	log   *zap.SugaredLogger
}

// NewCoordinator wires a coordinator over the given store.
func NewCoordinator(s Store, log *zap.SugaredLogger) *Coordinator {
	return &Coordinator{store: s, log: log}
}

// CreateComment inserts a comment, appends its id to the parent post's
// comment list, and notifies the post author when someone else commented.
// All three writes land together or not at all; validation and lookups happen
// before anything is written.
func (c *Coordinator) CreateComment(ctx context.Context, actorID, postID primitive.ObjectID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, InvalidInput("comment content is required")
	}

	actor, err := c.store.UserByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	post, err := c.store.PostByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:        primitive.NewObjectID(),
		PostID:    post.ID,
		UserID:    actor.ID,
		Content:   content,
		CreatedAt: time.Now(),
	}

	err = c.store.InTransaction(ctx, func(ctx context.Context) error {
		if err := c.store.InsertComment(ctx, comment); err != nil {
			return err
		}
		if err := c.store.PushPostComment(ctx, post.ID, comment.ID); err != nil {
			return err
		}
		if post.UserID != actor.ID {
			n := &models.Notification{
				ID:         primitive.NewObjectID(),
				FromUserID: actor.ID,
				ToUserID:   post.UserID,
				Type:       models.NotificationComment,
				PostID:     post.ID,
				CommentID:  comment.ID,
				CreatedAt:  time.Now(),
			}
			if err := c.store.InsertNotification(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment, its back-reference on the post, and every
// notification the comment produced, atomically. Only the comment's author may
// delete it. The back-reference is pulled first so a non-transactional
// fallback store never exposes a dangling id.
func (c *Coordinator) DeleteComment(ctx context.Context, actorID, commentID primitive.ObjectID) error {
	actor, err := c.store.UserByID(ctx, actorID)
	if err != nil {
		return err
	}
	comment, err := c.store.CommentByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != actor.ID {
		return Forbidden("not authorized to delete this comment")
	}

	return c.store.InTransaction(ctx, func(ctx context.Context) error {
		if err := c.store.PullPostComment(ctx, comment.PostID, comment.ID); err != nil {
			return err
		}
		if err := c.store.DeleteComment(ctx, comment.ID); err != nil {
			return err
		}
		return c.store.DeleteNotificationsByComment(ctx, comment.ID)
	})
}

// LikePost toggles the actor's like on a post and reports the resulting
// state. The like notification is best-effort: a single-document toggle plus
// an independent insert, not a transaction.
func (c *Coordinator) LikePost(ctx context.Context, actorID, postID primitive.ObjectID) (liked bool, err error) {
	actor, err := c.store.UserByID(ctx, actorID)
	if err != nil {
		return false, err
	}
	post, err := c.store.PostByID(ctx, postID)
	if err != nil {
		return false, err
	}

	if post.LikedBy(actor.ID) {
		if err := c.store.RemovePostLike(ctx, post.ID, actor.ID); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := c.store.AddPostLike(ctx, post.ID, actor.ID); err != nil {
		return false, err
	}
	if post.UserID != actor.ID {
		n := &models.Notification{
			ID:         primitive.NewObjectID(),
			FromUserID: actor.ID,
			ToUserID:   post.UserID,
			Type:       models.NotificationLike,
			PostID:     post.ID,
			CreatedAt:  time.Now(),
		}
		if err := c.store.InsertNotification(ctx, n); err != nil {
			c.log.Warnw("like notification dropped", "post", post.ID.Hex(), "err", err)
		}
	}
	return true, nil
}

// DeletePost removes a post and cascades to its comments and notifications in
// one transaction. Only the owner may delete. Media cleanup happens at the
// API layer before this call and is allowed to fail independently.
func (c *Coordinator) DeletePost(ctx context.Context, actorID, postID primitive.ObjectID) error {
	post, err := c.store.PostByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != actorID {
		return Forbidden("not authorized to delete this post")
	}

	return c.store.InTransaction(ctx, func(ctx context.Context) error {
		if err := c.store.DeleteCommentsByPost(ctx, post.ID); err != nil {
			return err
		}
		if err := c.store.DeleteNotificationsByPost(ctx, post.ID); err != nil {
			return err
		}
		return c.store.DeletePost(ctx, post.ID)
	})
}

// FollowUser toggles the follow edge between actor and target, updating both
// users' denormalized sets in one transaction. A follow notification is
// emitted best-effort on follow only.
func (c *Coordinator) FollowUser(ctx context.Context, actorID, targetID primitive.ObjectID) (following bool, err error) {
	if actorID == targetID {
		return false, InvalidInput("you cannot follow yourself")
	}
	actor, err := c.store.UserByID(ctx, actorID)
	if err != nil {
		return false, err
	}
	target, err := c.store.UserByID(ctx, targetID)
	if err != nil {
		return false, err
	}

	alreadyFollowing := false
	for _, id := range actor.Following {
		if id == target.ID {
			alreadyFollowing = true
			break
		}
	}

	err = c.store.InTransaction(ctx, func(ctx context.Context) error {
		if alreadyFollowing {
			if err := c.store.RemoveFollowing(ctx, actor.ID, target.ID); err != nil {
				return err
			}
			return c.store.RemoveFollower(ctx, target.ID, actor.ID)
		}
		if err := c.store.AddFollowing(ctx, actor.ID, target.ID); err != nil {
			return err
		}
		return c.store.AddFollower(ctx, target.ID, actor.ID)
	})
	if err != nil {
		return false, err
	}

	if !alreadyFollowing {
		n := &models.Notification{
			ID:         primitive.NewObjectID(),
			FromUserID: actor.ID,
			ToUserID:   target.ID,
			Type:       models.NotificationFollow,
			CreatedAt:  time.Now(),
		}
		if err := c.store.InsertNotification(ctx, n); err != nil {
			c.log.Warnw("follow notification dropped", "target", target.ID.Hex(), "err", err)
		}
	}
	return !alreadyFollowing, nil
}
