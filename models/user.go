package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a local mirror of an identity-provider account. It is created on
// the first /users/sync call and never hard-deleted.
type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ProviderID     string               `bson:"provider_id" json:"-"`
	Email          string               `bson:"email" json:"email"`
	Username       string               `bson:"username" json:"username"`
	FirstName      string               `bson:"first_name" json:"first_name"`
	LastName       string               `bson:"last_name" json:"last_name"`
	ProfilePicture string               `bson:"profile_picture" json:"profile_picture"`
	BannerImage    string               `bson:"banner_image" json:"banner_image"`
	Bio            string               `bson:"bio" json:"bio"`
	Location       string               `bson:"location" json:"location"`
	Followers      []primitive.ObjectID `bson:"followers" json:"followers"`
	Following      []primitive.ObjectID `bson:"following" json:"following"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updated_at"`
}

// UserSummary is the author shape embedded in posts, comments and notifications.
type UserSummary struct {
	ID             primitive.ObjectID `json:"id"`
	Username       string             `json:"username"`
	FirstName      string             `json:"first_name"`
	LastName       string             `json:"last_name"`
	ProfilePicture string             `json:"profile_picture"`
}

// Summary projects a user onto the embedded author shape.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		Username:       u.Username,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: u.ProfilePicture,
	}
}

// ProfileUpdate carries the optional fields of a profile edit. Nil means
// "leave unchanged".
type ProfileUpdate struct {
	FirstName      *string
	LastName       *string
	Bio            *string
	Location       *string
	ProfilePicture *string
	BannerImage    *string
}

// Empty reports whether the update would change nothing.
func (p ProfileUpdate) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Bio == nil &&
		p.Location == nil && p.ProfilePicture == nil && p.BannerImage == nil
}
