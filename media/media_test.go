package media

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perchsocial/perch/models"
)

func TestKindForMime(t *testing.T) {
	cases := []struct {
		mime string
		kind string
		ok   bool
	}{
		{"image/png", models.AttachmentImage, true},
		{"image/jpeg", models.AttachmentImage, true},
		{"video/mp4", models.AttachmentVideo, true},
		{"application/pdf", models.AttachmentPDF, true},
		{"application/zip", "", false},
		{"text/html", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		kind, ok := KindForMime(tc.mime)
		assert.Equal(t, tc.ok, ok, tc.mime)
		assert.Equal(t, tc.kind, kind, tc.mime)
	}
}
