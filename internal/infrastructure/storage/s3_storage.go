// Package storage provides object storage for product media uploads.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	catalogapp "github.com/shopdesk/backoffice/internal/application/catalog"
	"github.com/shopdesk/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	defaultEndpoint   = "localhost:9000"
	defaultRegion     = "us-east-1"
	defaultPresignTTL = 15 * time.Minute
)

var _ catalogapp.ObjectStorageService = (*S3MediaStore)(nil)

// S3MediaStore presigns media uploads against an S3-compatible bucket
// (AWS S3, MinIO, RustFS) and builds the public URLs product_media entries
// point at.
type S3MediaStore struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	public     url.URL
	presignTTL time.Duration
	logger     *zap.Logger
}

// NewS3MediaStore connects to the bucket named in cfg. No request is made
// until the store is used.
func NewS3MediaStore(cfg config.StorageConfig, logger *zap.Logger) (*S3MediaStore, error) {
	var missing []error
	for name, value := range map[string]string{
		"bucket":     cfg.Bucket,
		"access key": cfg.AccessKey,
		"secret key": cfg.SecretKey,
	} {
		if value == "" {
			missing = append(missing, fmt.Errorf("storage %s is required", name))
		}
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoint, err := endpointURL(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	public := endpoint.JoinPath(cfg.Bucket)
	if cfg.PublicURL != "" {
		if public, err = url.Parse(cfg.PublicURL); err != nil {
			return nil, fmt.Errorf("storage public url: %w", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint.String())
		o.UsePathStyle = cfg.UsePathStyle
	})

	ttl := cfg.PresignExpiration
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	return &S3MediaStore{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		public:     *public,
		presignTTL: ttl,
		logger:     logger.Named("media_store"),
	}, nil
}

// endpointURL adds the scheme the SDK needs when the endpoint is a bare host
func endpointURL(endpoint string, useSSL bool) (*url.URL, error) {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		endpoint = scheme + "://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("storage endpoint: %w", err)
	}
	return u, nil
}

// apiErrorCode returns the S3 error code carried by err, if any
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// EnsureBucket creates the media bucket when it does not exist yet
func (s *S3MediaStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	switch code := apiErrorCode(err); {
	case err == nil:
		return nil
	case code != "NotFound" && code != "NoSuchBucket":
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}

	s.logger.Info("Creating media bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil && apiErrorCode(err) != "BucketAlreadyOwnedByYou" {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// GenerateUploadURL presigns a PUT of key restricted to contentType.
// A non-positive expiresIn uses the configured lifetime.
func (s *S3MediaStore) GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = s.presignTTL
	}

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign upload of %s: %w", key, err)
	}

	s.logger.Debug("Presigned media upload", zap.String("key", key), zap.Duration("expires_in", expiresIn))
	return req.URL, time.Now().Add(expiresIn), nil
}

// ObjectURL returns the public URL of key
func (s *S3MediaStore) ObjectURL(key string) string {
	u := s.public
	u.Path = path.Join("/", u.Path, key)
	return u.String()
}

// MediaExists reports whether an uploaded object is present
func (s *S3MediaStore) MediaExists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("storage key is required")
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	switch apiErrorCode(err) {
	case "":
		if err != nil {
			return false, fmt.Errorf("head object %s: %w", key, err)
		}
		return true, nil
	case "NotFound", "NoSuchKey":
		return false, nil
	default:
		return false, fmt.Errorf("head object %s: %w", key, err)
	}
}

func (s *S3MediaStore) Bucket() string { return s.bucket }
