package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perchsocial/perch/models"
)

func TestResourceTypeFor(t *testing.T) {
	assert.Equal(t, "image", resourceTypeFor(models.AttachmentImage))
	assert.Equal(t, "video", resourceTypeFor(models.AttachmentVideo))
	assert.Equal(t, "raw", resourceTypeFor(models.AttachmentPDF))
	assert.Equal(t, "image", resourceTypeFor("unknown"))
}

func TestUniquePublicID(t *testing.T) {
	a := uniquePublicID("holiday photo.png")
	b := uniquePublicID("holiday photo.png")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "holiday_photo_"))

	assert.True(t, strings.HasPrefix(uniquePublicID("../../etc/passwd"), "passwd_"))
	assert.True(t, strings.HasPrefix(uniquePublicID(""), "file_"))
	assert.NotContains(t, uniquePublicID("a/b c%d.mp4"), "/")
}
