package storage

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"net/http"
	"strings"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// PortraitMaxSize is the longest side of a stored poet portrait.
	PortraitMaxSize = 1024
	WebPQuality     = 70
)

var (
	ErrInvalidDataURL = errors.New("invalid image data URL")
	ErrInvalidImage   = errors.New("invalid image file")
)

// DecodeDataURL splits a base64 data URL into its bytes and declared MIME type.
func DecodeDataURL(s string) ([]byte, string, error) {
	if !strings.HasPrefix(s, "data:") {
		return nil, "", ErrInvalidDataURL
	}
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, "", ErrInvalidDataURL
	}
	contentType := normalizeContentType(strings.TrimSuffix(header, ";base64"))

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", ErrInvalidDataURL
	}
	if len(data) == 0 {
		return nil, "", ErrInvalidDataURL
	}
	return data, contentType, nil
}

// NormalizeImage decodes an uploaded image, shrinks it to fit maxSize on its
// longest side and re-encodes it as WebP.
func NormalizeImage(data []byte, maxSize int) ([]byte, error) {
	if !IsAllowedImageMIME(http.DetectContentType(data)) {
		return nil, ErrInvalidImage
	}
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidImage
	}

	resized := resizeToFit(decoded, maxSize, maxSize)

	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, resized, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsAllowedImageMIME reports whether contentType is an accepted image type.
func IsAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
