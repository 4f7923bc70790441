package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadPart struct {
	filename string
	mime     string
	body     []byte
}

func multipartRequest(t *testing.T, parts []uploadPart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+p.filename+`"`)
		h.Set("Content-Type", p.mime)
		fw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = fw.Write(p.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func uploadTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/posts", ValidateUploads(), func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "accepted"})
	})
	return r
}

func TestValidateUploadsAcceptsAllowedTypes(t *testing.T) {
	r := uploadTestRouter()
	req := multipartRequest(t, []uploadPart{
		{"photo.png", "image/png", []byte("png-bytes")},
		{"clip.mp4", "video/mp4", []byte("mp4-bytes")},
		{"paper.pdf", "application/pdf", []byte("pdf-bytes")},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidateUploadsRejectsDisallowedType(t *testing.T) {
	r := uploadTestRouter()
	req := multipartRequest(t, []uploadPart{
		{"archive.zip", "application/zip", []byte("zip-bytes")},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "40032")
}

func TestValidateUploadsRejectsTooManyFiles(t *testing.T) {
	r := uploadTestRouter()
	parts := make([]uploadPart, MaxUploadFiles+1)
	for i := range parts {
		parts[i] = uploadPart{"photo.png", "image/png", []byte("x")}
	}
	req := multipartRequest(t, parts)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "40031")
}

func TestValidateUploadsRejectsNonMultipart(t *testing.T) {
	r := uploadTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewBufferString(`{"content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "40030")
}

func TestValidateUploadsAllowsTextOnlyForm(t *testing.T) {
	r := uploadTestRouter()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("content", "just text"))
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
