package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"net/http"
	"strings"

	"foodgram/internal/config"
	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/observability"
	"foodgram/internal/storage"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaMaxUploadMB = 10
	MasterMaxSize           = 2048
	// MaxSourcePixels caps the decoded canvas; headers are checked before decoding.
	MaxSourcePixels = 40_000_000
	JPEGQuality             = 82
	WebPQuality             = 70
)

// Media kinds double as the first path segment of stored keys.
const (
	MediaKindRecipe = "recipes"
	MediaKindAvatar = "users"
)

// MediaService turns base64 image payloads into stored JPEG masters with a
// WebP sibling.
type MediaService struct {
	store         storage.MediaStore
	maxUploadSize int64
}

func NewMediaService(store storage.MediaStore, cfg *config.Config) *MediaService {
	maxUploadMB := DefaultMediaMaxUploadMB
	if cfg != nil && cfg.MediaMaxUploadMB > 0 {
		maxUploadMB = cfg.MediaMaxUploadMB
	}
	return &MediaService{
		store:         store,
		maxUploadSize: int64(maxUploadMB) * 1024 * 1024,
	}
}

// Store decodes payload, normalizes it and returns the public URL of the
// JPEG master. payload is either a data URI or bare base64.
func (s *MediaService) Store(ctx context.Context, kind, payload string) (string, error) {
	content, declaredType, err := decodeImagePayload(payload)
	if err != nil {
		return "", err
	}
	if int64(len(content)) > s.maxUploadSize {
		return "", models.NewValidationError(fmt.Sprintf("Image too large (max %dMB)", s.maxUploadSize/(1024*1024)))
	}

	detectedType := http.DetectContentType(content)
	if !isAllowedImageMIME(detectedType) {
		return "", models.NewValidationError("Invalid image type")
	}
	if declaredType != "" && !isMatchingContentType(declaredType, detectedType) {
		return "", models.NewValidationError("Image content type mismatch")
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	if header.Width <= 0 || header.Height <= 0 || int64(header.Width)*int64(header.Height) > MaxSourcePixels {
		return "", models.NewValidationError("Image dimensions too large")
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}

	master := resizeToFit(flattenOnWhite(decoded), MasterMaxSize, MasterMaxSize)
	jpgBytes, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	webpBytes, err := encodeWebP(master, WebPQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	base := mediaKey(kind, jpgBytes)

	url, err := s.store.Put(ctx, base+".jpg", jpgBytes, "image/jpeg")
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if _, err := s.store.Put(ctx, base+".webp", webpBytes, "image/webp"); err != nil {
		middleware.Logger.WarnContext(ctx, "webp sibling not stored", "key", base+".webp", "error", err)
	}

	observability.MediaUploadBytes.WithLabelValues(kind).Observe(float64(len(jpgBytes)))
	return url, nil
}

// Remove deletes a stored master and its WebP sibling. Failures are logged.
func (s *MediaService) Remove(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.store.Delete(ctx, url); err != nil {
		middleware.Logger.WarnContext(ctx, "media delete failed", "url", url, "error", err)
	}
	if strings.HasSuffix(url, ".jpg") {
		_ = s.store.Delete(ctx, strings.TrimSuffix(url, ".jpg")+".webp")
	}
}

// decodeImagePayload accepts "data:image/png;base64,...." or bare base64.
func decodeImagePayload(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", models.NewValidationError("Image is required")
	}

	declaredType := ""
	if strings.HasPrefix(payload, "data:") {
		header, data, ok := strings.Cut(payload[len("data:"):], ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", models.NewValidationError("Image must be a base64 data URI")
		}
		declaredType = normalizeContentType(strings.TrimSuffix(header, ";base64"))
		if !strings.HasPrefix(declaredType, "image/") {
			return nil, "", models.NewValidationError("Invalid image type")
		}
		payload = data
	}

	content, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		content, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil || len(content) == 0 {
		return nil, "", models.NewValidationError("Image is not valid base64")
	}
	return content, declaredType, nil
}

// flattenOnWhite drops transparency so the JPEG master has no black
// background where the source was transparent.
func flattenOnWhite(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, b, src, b.Min, draw.Over)
	return dst
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

	scale := float64(maxWidth) / float64(w)
	if scaleH := float64(maxHeight) / float64(h); scaleH < scale {
		scale = scaleH
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
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

// mediaKey names one upload. Every call gets its own object, so records that
// share image bytes never share a file and may delete theirs freely.
func mediaKey(kind string, content []byte) string {
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s/%s/%s-%s", kind, hash[:2], hash[:24], id[:16])
}
