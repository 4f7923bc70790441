package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/perchsocial/perch/media"
	"github.com/perchsocial/perch/models"
	"github.com/perchsocial/perch/utils"
)

const (
	// MaxUploadFiles caps attachments per post.
	MaxUploadFiles = 10
	// MaxFileSize is the per-file ceiling applied to every upload.
	MaxFileSize = 100 << 20 // 100MB
	// MaxPDFSize is the stricter ceiling for PDF attachments.
	MaxPDFSize = 10 << 20 // 10MB
)

// ValidateUploads parses the multipart form and rejects the request before
// any byte reaches the media host when a file is of a disallowed type or over
// its size cap. Handlers downstream read the already-parsed "files" field.
func ValidateUploads() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		form, err := ctx.MultipartForm()
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40030, "invalid multipart form")
			ctx.Abort()
			return
		}

		files := form.File["files"]
		if len(files) > MaxUploadFiles {
			utils.Error(ctx, http.StatusBadRequest, 40031,
				fmt.Sprintf("at most %d files per post", MaxUploadFiles))
			ctx.Abort()
			return
		}

		for _, fh := range files {
			mimeType := fh.Header.Get("Content-Type")
			kind, ok := media.KindForMime(mimeType)
			if !ok {
				utils.Error(ctx, http.StatusBadRequest, 40032,
					"invalid file type, only images, videos and PDFs are allowed")
				ctx.Abort()
				return
			}
			if fh.Size > MaxFileSize {
				utils.Error(ctx, http.StatusBadRequest, 40033,
					fmt.Sprintf("file %q exceeds the 100MB limit", fh.Filename))
				ctx.Abort()
				return
			}
			if kind == models.AttachmentPDF && fh.Size > MaxPDFSize {
				utils.Error(ctx, http.StatusBadRequest, 40034,
					fmt.Sprintf("PDF %q must be smaller than 10MB", fh.Filename))
				ctx.Abort()
				return
			}
		}

		ctx.Next()
	}
}
