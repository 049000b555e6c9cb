// Package media stores uploaded images on a date-keyed file tree.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"bbs/internal/config"
	"bbs/internal/models"
	"bbs/internal/observability"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Kind selects the directory an upload is filed under.
type Kind string

const (
	PostImage Kind = "board/images"
	Avatar    Kind = "accounts/avatar"
)

const (
	DefaultUploadDir       = "media"
	DefaultMaxUploadSizeMB = 10
	ThumbnailMaxSize       = 256
	WebPQuality            = 70
)

// URLPrefix is where the server exposes the upload tree.
const URLPrefix = "/media/"

// Upload is one file received from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Stored describes a saved image. Paths are slash-separated and relative to the store root.
type Stored struct {
	Path          string `json:"path"`
	ThumbnailPath string `json:"thumbnail_path"`
	MimeType      string `json:"mime_type"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	SizeBytes     int64  `json:"size_bytes"`
}

// Store writes uploads under root/<kind>/YYYY/MM/DD/.
type Store struct {
	root     string
	maxBytes int64
	now      func() time.Time
}

func NewStore(cfg *config.Config) *Store {
	root := DefaultUploadDir
	maxBytes := int64(DefaultMaxUploadSizeMB) * 1024 * 1024
	now := time.Now
	if cfg != nil {
		if cfg.UploadDir != "" {
			root = cfg.UploadDir
		}
		if cfg.UploadMaxSizeMB > 0 {
			maxBytes = cfg.UploadMaxBytes()
		}
		loc := cfg.Location()
		now = func() time.Time { return time.Now().In(loc) }
	}
	return &Store{root: root, maxBytes: maxBytes, now: now}
}

// Root is the directory the store writes into.
func (s *Store) Root() string {
	return s.root
}

// URL maps a stored relative path to its public URL. Empty stays empty.
func URL(rel string) string {
	if rel == "" {
		return ""
	}
	return URLPrefix + strings.TrimPrefix(rel, "/")
}

// Save validates the upload, writes the original bytes and a webp thumbnail.
func (s *Store) Save(ctx context.Context, kind Kind, in Upload) (*Stored, error) {
	span, _ := observability.NewSpan(ctx, "media.save", attribute.String("media.kind", string(kind)))
	defer span.End()

	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	sourceMime := decodedFormatToMime(format)
	if sourceMime == "" {
		return nil, models.NewValidationError("Unsupported image format")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, sourceMime) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	thumb, err := encodeWebP(resizeToFit(decoded, ThumbnailMaxSize, ThumbnailMaxSize), WebPQuality)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}

	dir := datedDir(kind, s.now())
	name := uuid.New().String()
	rel := path.Join(dir, name+extensionFor(sourceMime))
	thumbRel := path.Join(dir, name+"_thumb.webp")

	if err := writeBytesToFile(s.abs(rel), in.Content); err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}
	if err := writeBytesToFile(s.abs(thumbRel), thumb); err != nil {
		_ = os.Remove(s.abs(rel))
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}

	b := decoded.Bounds()
	span.AddAttributes(attribute.String("media.path", rel))
	return &Stored{
		Path:          rel,
		ThumbnailPath: thumbRel,
		MimeType:      sourceMime,
		Width:         b.Dx(),
		Height:        b.Dy(),
		SizeBytes:     int64(len(in.Content)),
	}, nil
}

// Remove deletes a stored file and its thumbnail. Missing files are ignored.
func (s *Store) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	full, err := s.Resolve(rel)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range []string{full, ThumbnailFor(full)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Resolve maps a relative path to a file inside the store root, rejecting traversal.
func (s *Store) Resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" || strings.Contains(rel, "..") {
		return "", models.NewValidationError("Invalid media path")
	}
	return s.abs(strings.TrimPrefix(clean, "/")), nil
}

// ThumbnailFor returns the thumbnail path stored next to an original.
func ThumbnailFor(p string) string {
	ext := filepath.Ext(p)
	return strings.TrimSuffix(p, ext) + "_thumb.webp"
}

func (s *Store) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func datedDir(kind Kind, t time.Time) string {
	return path.Join(string(kind), t.Format("2006"), t.Format("01"), t.Format("02"))
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

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
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

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

func writeBytesToFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}
