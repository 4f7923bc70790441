package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types.
const (
	NotificationComment = "comment"
	NotificationLike    = "like"
	NotificationFollow  = "follow"
)

// Notification records an interaction aimed at a user. It is derived state:
// comment notifications are deleted together with their comment, and nothing
// else ever reads them as a source of truth.
type Notification struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FromUserID primitive.ObjectID `bson:"from_user_id" json:"from_user_id"`
	ToUserID   primitive.ObjectID `bson:"to_user_id" json:"to_user_id"`
	Type       string             `bson:"type" json:"type"`
	PostID     primitive.ObjectID `bson:"post_id,omitempty" json:"post_id,omitempty"`
	CommentID  primitive.ObjectID `bson:"comment_id,omitempty" json:"comment_id,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
