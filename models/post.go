package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxPostContentLength caps post text; posts with attachments may have empty text.
const MaxPostContentLength = 1000

// Attachment kinds accepted by the upload layer.
const (
	AttachmentImage = "image"
	AttachmentVideo = "video"
	AttachmentPDF   = "pdf"
)

// Attachment records a media file stored on the external media host.
// Only metadata lives here; the blob is remote. DeleteHandle is the host's
// deletion id used during post cleanup.
type Attachment struct {
	URL          string `bson:"url" json:"url"`
	Kind         string `bson:"kind" json:"kind"`
	Filename     string `bson:"filename" json:"filename"`
	Size         int64  `bson:"size" json:"size"`
	MimeType     string `bson:"mime_type" json:"mime_type"`
	DeleteHandle string `bson:"delete_handle" json:"-"`
}

// Post is a user's post. Comments is a denormalized back-reference list:
// every id in it must name an existing comment whose PostID is this post.
// It is mutated only through atomic $push/$pull so concurrent appends never
// lose updates.
type Post struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID   `bson:"user_id" json:"user_id"`
	Content     string               `bson:"content" json:"content"`
	Attachments []Attachment         `bson:"attachments" json:"attachments"`
	Likes       []primitive.ObjectID `bson:"likes" json:"likes"`
	Comments    []primitive.ObjectID `bson:"comments" json:"-"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}

// LikedBy reports whether userID is present in the likes set.
func (p Post) LikedBy(userID primitive.ObjectID) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
