package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/storage"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 10
	DefaultImageMaxDimension    = 1920
	JPEGQuality                 = 82

	imageKeyPrefix = "posts/"
)

// ImageUpload is a raw file taken from a multipart form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

type ImageService struct {
	store              storage.Storage
	maxUploadSizeBytes int64
	maxDimension       int
}

func NewImageService(store storage.Storage, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	maxDimension := DefaultImageMaxDimension

	if cfg != nil {
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
		if cfg.ImageMaxDimension > 0 {
			maxDimension = cfg.ImageMaxDimension
		}
	}

	return &ImageService{
		store:              store,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		maxDimension:       maxDimension,
	}
}

// Store validates the upload, downscales oversized images and writes the
// result under posts/. It returns the storage key.
func (s *ImageService) Store(ctx context.Context, in ImageUpload) (string, error) {
	if s == nil || s.store == nil {
		return "", models.NewFieldValidationError("image", "Image uploads are disabled.")
	}
	if len(in.Content) == 0 {
		return "", models.NewFieldValidationError("image", "The submitted file is empty.")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return "", models.NewFieldValidationError("image",
			fmt.Sprintf("File too large (max %dMB).", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return "", models.NewFieldValidationError("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewFieldValidationError("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	data := in.Content
	contentType := decodedFormatToMime(format)
	ext := decodedFormatToExt(format)

	if cfg.Width > s.maxDimension || cfg.Height > s.maxDimension {
		decoded, _, err := image.Decode(bytes.NewReader(in.Content))
		if err != nil {
			return "", models.NewFieldValidationError("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		}
		data, err = encodeJPEG(resizeToFit(decoded, s.maxDimension, s.maxDimension), JPEGQuality)
		if err != nil {
			return "", models.NewInternalError(err)
		}
		contentType = "image/jpeg"
		ext = "jpg"
	}

	key := imageKeyPrefix + uuid.NewString() + "." + ext
	if err := s.store.Write(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", models.NewInternalError(err)
	}
	return key, nil
}

// Remove deletes a stored image. Failures are logged, not returned.
func (s *ImageService) Remove(ctx context.Context, key string) {
	if s == nil || s.store == nil || key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to remove image",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Open streams a stored image. Keys outside posts/ are reported as missing.
func (s *ImageService) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !strings.HasPrefix(key, imageKeyPrefix) {
		return nil, models.NewNotFoundError("Image", key)
	}
	rc, err := s.store.Read(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, models.NewNotFoundError("Image", key)
		}
		return nil, models.NewInternalError(err)
	}
	return rc, nil
}

// URL returns a public or presigned URL for a stored image.
func (s *ImageService) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if !strings.HasPrefix(key, imageKeyPrefix) {
		return "", models.NewNotFoundError("Image", key)
	}
	return s.store.GetURL(ctx, key, expires)
}

// ContentTypeForKey guesses the MIME type from the key's extension.
func ContentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".jpg"):
		return "image/jpeg"
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".gif"):
		return "image/gif"
	case strings.HasSuffix(key, ".webp"):
		return "image/webp"
	default:
		return "application/octet-stream"
	}
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

func isAllowedImageMIME(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func decodedFormatToMime(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func decodedFormatToExt(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
