// Package media is the client side of the external media host. Attachments
// are pushed through it on post creation and destroyed best-effort on post
// deletion; only metadata ever lands in the document store.
package media

import (
	"context"
	"io"
	"strings"

	"github.com/perchsocial/perch/models"
)

// Upload is the synchronous result of a completed upload: the stable public
// URL and the handle needed to delete the blob later.
type Upload struct {
	URL          string
	DeleteHandle string
}

// UploadInput describes one file about to be uploaded.
type UploadInput struct {
	Filename string
	MimeType string
	Kind     string
	Size     int64
}

// Uploader abstracts the media host so handlers and tests do not depend on a
// concrete SDK.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, in UploadInput) (Upload, error)
	Destroy(ctx context.Context, deleteHandle, kind string) error
}

// KindForMime classifies a MIME type into an attachment kind. The bool is
// false for anything outside image/*, video/* and application/pdf.
func KindForMime(mimeType string) (string, bool) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.AttachmentImage, true
	case strings.HasPrefix(mimeType, "video/"):
		return models.AttachmentVideo, true
	case mimeType == "application/pdf":
		return models.AttachmentPDF, true
	default:
		return "", false
	}
}
