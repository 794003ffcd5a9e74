package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// AllowedMediaContentTypes is the whitelist of uploadable media types.
// SVG is excluded because it can carry scripts.
var AllowedMediaContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/avif": true,
	"video/mp4":  true,
	"video/webm": true,
}

// ObjectStorageService defines the interface for object storage operations
// This interface is implemented by the infrastructure layer (S3, MinIO, etc.)
type ObjectStorageService interface {
	// GenerateUploadURL generates a presigned URL for uploading a file
	// Returns the upload URL and expiration time
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// ObjectURL returns the URL clients use to read a stored object
	ObjectURL(storageKey string) string
}

// MediaUploadConfig holds configuration for presigned media uploads
type MediaUploadConfig struct {
	// UploadURLExpiry is the duration for which upload URLs are valid
	UploadURLExpiry time.Duration
	// MaxFileSize is the largest accepted object in bytes
	MaxFileSize int64
}

// DefaultMediaUploadConfig returns the default configuration
func DefaultMediaUploadConfig() MediaUploadConfig {
	return MediaUploadConfig{
		UploadURLExpiry: 15 * time.Minute,
		MaxFileSize:     50 << 20,
	}
}

// MediaUploader issues presigned upload URLs for new product media.
// The returned media_id and url are what the client later submits in
// product_media; nothing is persisted until then.
type MediaUploader struct {
	storage ObjectStorageService
	config  MediaUploadConfig
	logger  *zap.Logger
}

// NewMediaUploader creates a new MediaUploader
func NewMediaUploader(storage ObjectStorageService, config MediaUploadConfig, logger *zap.Logger) *MediaUploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaUploader{storage: storage, config: config, logger: logger}
}

// PresignUpload validates the upload request and returns a presigned URL
func (u *MediaUploader) PresignUpload(ctx context.Context, productID uuid.UUID, req MediaUploadRequest) (*MediaUploadResponse, error) {
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if !AllowedMediaContentTypes[contentType] {
		return nil, shared.NewValidationError(shared.FieldError{
			Field:   "content_type",
			Message: fmt.Sprintf("Content type '%s' is not allowed", req.ContentType),
		})
	}
	if u.config.MaxFileSize > 0 && req.FileSize > u.config.MaxFileSize {
		return nil, shared.NewValidationError(shared.FieldError{
			Field:   "file_size",
			Message: fmt.Sprintf("Must be at most %d bytes", u.config.MaxFileSize),
		})
	}

	mediaID := uuid.NewString()
	storageKey := generateStorageKey(productID, mediaID, req.FileName)

	uploadURL, expiresAt, err := u.storage.GenerateUploadURL(ctx, storageKey, contentType, u.config.UploadURLExpiry)
	if err != nil {
		u.logger.Error("failed to presign media upload",
			zap.String("product_id", productID.String()),
			zap.String("storage_key", storageKey),
			zap.Error(err),
		)
		return nil, shared.NewDomainError("UPLOAD_URL_FAILED", "Failed to generate upload URL")
	}

	return &MediaUploadResponse{
		MediaID:    mediaID,
		StorageKey: storageKey,
		UploadURL:  uploadURL,
		URL:        u.storage.ObjectURL(storageKey),
		ExpiresAt:  expiresAt,
	}, nil
}

// generateStorageKey builds products/{product_id}/media/{media_id}{ext}
func generateStorageKey(productID uuid.UUID, mediaID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("products/%s/media/%s%s", productID, mediaID, ext)
}
