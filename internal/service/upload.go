package service

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"harfzaar/internal/models"
	"harfzaar/internal/observability"
	"harfzaar/internal/storage"

	"github.com/google/uuid"
)

const maxExtLen = 10

// storedExt pins extensions for types the platform MIME table may not know,
// so a key's extension always maps back to its validated type.
var storedExt = map[string]string{
	"image/jpeg":         ".jpg",
	"image/png":          ".png",
	"image/webp":         ".webp",
	"image/gif":          ".gif",
	"audio/mpeg":         ".mp3",
	"audio/mp4":          ".m4a",
	"audio/aac":          ".aac",
	"audio/ogg":          ".ogg",
	"audio/opus":         ".opus",
	"audio/wav":          ".wav",
	"audio/x-wav":        ".wav",
	"audio/webm":         ".weba",
	"audio/flac":         ".flac",
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
}

// UploadPolicy limits what may be stored under a key prefix.
type UploadPolicy struct {
	Prefix   string
	MaxBytes int64
	// Allowed holds exact MIME types or "type/*" wildcards.
	Allowed []string
	// SniffImages requires the bytes to look like an allowed image.
	SniffImages bool
}

var (
	// ChatFilePolicy accepts voice notes and documents sent in Bazm.
	ChatFilePolicy = UploadPolicy{
		Prefix:   "chat_files",
		MaxBytes: 10 << 20,
		Allowed: []string{
			"audio/*",
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		},
	}

	// NewsImagePolicy accepts the optional news illustration.
	NewsImagePolicy = UploadPolicy{
		Prefix:      "news",
		MaxBytes:    5 << 20,
		Allowed:     []string{"image/jpeg", "image/png", "image/webp", "image/gif"},
		SniffImages: true,
	}

	// PortraitPolicy stores normalised poet portraits.
	PortraitPolicy = UploadPolicy{
		Prefix:   "poets",
		MaxBytes: 10 << 20,
		Allowed:  []string{"image/webp"},
	}
)

// UploadInput is one file to store.
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
	Policy      UploadPolicy
}

// UploadResult describes a stored file.
type UploadResult struct {
	URL      string `json:"fileUrl"`
	Key      string `json:"-"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
}

// Uploader validates files and writes them to a storage.Store.
type Uploader struct {
	store    storage.Store
	maxBytes int64
	now      func() time.Time
}

// NewUploader returns an Uploader. A positive maxMB caps every policy.
func NewUploader(store storage.Store, maxMB int) *Uploader {
	u := &Uploader{store: store, now: time.Now}
	if maxMB > 0 {
		u.maxBytes = int64(maxMB) << 20
	}
	return u
}

// Store validates in against its policy and writes it under a fresh key.
func (u *Uploader) Store(ctx context.Context, in UploadInput) (res UploadResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "Uploader", "Store")
	defer func() { observability.EndSpan(span, err) }()

	if len(in.Data) == 0 {
		return UploadResult{}, models.NewValidationError("No file uploaded")
	}
	limit := in.Policy.MaxBytes
	if u.maxBytes > 0 && (limit <= 0 || u.maxBytes < limit) {
		limit = u.maxBytes
	}
	if limit > 0 && int64(len(in.Data)) > limit {
		return UploadResult{}, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", limit>>20))
	}

	contentType := normalizeMIME(in.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = normalizeMIME(http.DetectContentType(in.Data))
	}
	if !in.Policy.allows(contentType) {
		return UploadResult{}, models.NewValidationError("Invalid file type")
	}
	sniffed := normalizeMIME(http.DetectContentType(in.Data))
	if in.Policy.SniffImages {
		if !storage.IsAllowedImageMIME(sniffed) || !in.Policy.allows(sniffed) {
			return UploadResult{}, models.NewValidationError("Invalid image file")
		}
		contentType = sniffed
	} else if strings.HasPrefix(sniffed, "text/") && !in.Policy.allows(sniffed) {
		// Markup or script sent under a binary type.
		return UploadResult{}, models.NewValidationError("Invalid file type")
	}

	key := u.key(in.Policy.Prefix, in.Filename, contentType)
	if err := u.store.Put(ctx, key, contentType, in.Data); err != nil {
		return UploadResult{}, models.NewInternalError(err)
	}

	name := path.Base(strings.ReplaceAll(in.Filename, "\\", "/"))
	if name == "." || name == "/" {
		name = path.Base(key)
	}
	return UploadResult{URL: u.store.URL(key), Key: key, FileName: name, FileType: contentType}, nil
}

// Remove deletes a stored file; used to undo an upload when a later step fails.
func (u *Uploader) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := u.store.Delete(ctx, key); err != nil {
		observability.LogAsyncOperationError(ctx, "upload_cleanup", err, map[string]any{"key": key})
	}
}

// key builds <prefix>/<unixnano>-<uuid8><ext>. The filename's extension is
// kept only when it maps back to contentType.
func (u *Uploader) key(prefix, filename, contentType string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%d-%s%s", prefix, u.now().UnixNano(), id, extFor(filename, contentType))
}

func extFor(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" && len(ext) <= maxExtLen && !strings.ContainsAny(ext, "/\\ ") &&
		normalizeMIME(mime.TypeByExtension(ext)) == contentType {
		return ext
	}
	if ext, ok := storedExt[contentType]; ok {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func (p UploadPolicy) allows(contentType string) bool {
	for _, a := range p.Allowed {
		if a == contentType {
			return true
		}
		if major, ok := strings.CutSuffix(a, "/*"); ok && strings.HasPrefix(contentType, major+"/") {
			return true
		}
	}
	return false
}

func normalizeMIME(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}
