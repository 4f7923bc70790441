package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"github.com/perchsocial/perch/models"
	"github.com/perchsocial/perch/store"
)

// uploadFolder groups all post attachments on the media host.
const uploadFolder = "posts"

// Cloudinary implements Uploader with the Cloudinary SDK.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinary builds a client from account credentials.
func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

// Upload streams one file to the host and returns its public URL plus the
// deletion handle. The public id embeds a uuid so identical filenames never
// collide.
func (c *Cloudinary) Upload(ctx context.Context, r io.Reader, in UploadInput) (Upload, error) {
	publicID := uniquePublicID(in.Filename)
	resp, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     publicID,
		Folder:       uploadFolder,
		ResourceType: resourceTypeFor(in.Kind),
	})
	if err != nil {
		return Upload{}, store.Upstream("media upload", err)
	}
	if resp.Error.Message != "" {
		return Upload{}, store.Upstream("media upload", errors.New(resp.Error.Message))
	}
	return Upload{URL: resp.SecureURL, DeleteHandle: resp.PublicID}, nil
}

// Destroy deletes a previously uploaded blob by its handle.
func (c *Cloudinary) Destroy(ctx context.Context, deleteHandle, kind string) error {
	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     deleteHandle,
		ResourceType: resourceTypeFor(kind),
	})
	if err != nil {
		return store.Upstream("media delete", err)
	}
	if resp.Result != "ok" && resp.Result != "not found" {
		return store.Upstream("media delete", fmt.Errorf("unexpected result %q", resp.Result))
	}
	return nil
}

// resourceTypeFor maps attachment kinds onto the host's resource types. PDFs
// are stored as raw blobs.
func resourceTypeFor(kind string) string {
	switch kind {
	case models.AttachmentVideo:
		return "video"
	case models.AttachmentPDF:
		return "raw"
	default:
		return "image"
	}
}

func uniquePublicID(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		base = "file"
	}
	return base + "_" + uuid.NewString()
}
