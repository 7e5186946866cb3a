package upload

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileHeader builds a multipart upload the same way a browser would.
func fileHeader(t *testing.T, filename, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	_, fh, err := req.FormFile("image")
	require.NoError(t, err)
	return fh
}

func TestFromUploadRoundTrip(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x01}
	fh := fileHeader(t, "meal.png", "image/png", raw)

	part, err := FromUpload(fh)
	require.NoError(t, err)
	require.NotNil(t, part)

	assert.Equal(t, "image/png", part.MimeType)
	assert.Equal(t, raw, part.Data)
}

func TestFromUploadNoFile(t *testing.T) {
	part, err := FromUpload(nil)
	assert.NoError(t, err)
	assert.Nil(t, part)
}

func TestFromUploadFallsBackToExtension(t *testing.T) {
	fh := fileHeader(t, "lunch.JPG", "application/octet-stream", []byte("jpeg-bytes"))

	part, err := FromUpload(fh)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", part.MimeType)
}

func TestAcceptedExtension(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.JPEG", "c.png"} {
		assert.True(t, AcceptedExtension(name), name)
	}
	for _, name := range []string{"d.gif", "e.webp", "noext", "f.png.exe"} {
		assert.False(t, AcceptedExtension(name), name)
	}
}

func TestDecodable(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	assert.NoError(t, Decodable(&ImagePart{MimeType: "image/png", Data: buf.Bytes()}))
	assert.Error(t, Decodable(&ImagePart{MimeType: "image/png", Data: []byte("garbage")}))
	assert.Error(t, Decodable(nil))
}
