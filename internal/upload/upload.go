// Package upload turns uploaded food photos into the byte + MIME form the model expects.
package upload

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// MaxImageBytes caps the size of a single uploaded image.
const MaxImageBytes = 10 << 20

// AcceptedExtensions lists the file types the UI lets through.
var AcceptedExtensions = []string{"jpg", "jpeg", "png"}

var extensionMimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// ImagePart is one uploaded image as handed to the model.
type ImagePart struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// AcceptedExtension reports whether filename ends in one of AcceptedExtensions.
func AcceptedExtension(filename string) bool {
	_, ok := extensionMimeTypes[extension(filename)]
	return ok
}

// FromUpload reads the uploaded file. It returns nil, nil when no file was supplied.
// The declared Content-Type is kept as-is; it falls back to the extension's type only
// when the client declared nothing useful.
func FromUpload(fh *multipart.FileHeader) (*ImagePart, error) {
	if fh == nil {
		return nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = extensionMimeTypes[extension(fh.Filename)]
	}

	return &ImagePart{MimeType: mimeType, Data: data}, nil
}

// Decodable checks the bytes actually form an image we can open.
func Decodable(part *ImagePart) error {
	if part == nil || len(part.Data) == 0 {
		return fmt.Errorf("image is empty")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(part.Data)); err != nil {
		return fmt.Errorf("could not open the image: %w", err)
	}
	return nil
}

func extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}
