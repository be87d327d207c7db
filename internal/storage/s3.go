package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/linksylabs/linksy-backend/internal/config"
)

const (
	// MaxImageSize caps uploads at 5 MB.
	MaxImageSize = 5 * 1024 * 1024

	presignExpiry = 1 * time.Hour
)

var (
	ErrImageTooLarge    = errors.New("image exceeds maximum size")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// imageExtensions maps sniffed content types to object-key extensions.
var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// S3Storage talks to an S3-compatible object store. It holds two clients
// because the backend and browsers reach the store through different
// endpoints: ops run against the internal endpoint, presigned URLs are
// generated against the public one and handed out unmodified.
type S3Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	logger    *slog.Logger
}

// NewS3Storage builds the storage client from configuration.
func NewS3Storage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	clientFor := func(endpoint string) *s3.Client {
		return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Storage{
		client:    clientFor(cfg.Endpoint),
		presigner: s3.NewPresignClient(clientFor(cfg.PublicEndpoint)),
		bucket:    cfg.Bucket,
		logger:    logger,
	}, nil
}

// EnsureBucket creates the bucket if it does not already exist. Called once
// at startup.
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket %q: %w", s.bucket, err)
	}

	s.logger.Info("created storage bucket", slog.String("bucket", s.bucket))
	return nil
}

// ValidateImage checks size and sniffed content type and returns the
// extension and content type for the object.
func ValidateImage(data []byte) (ext, contentType string, err error) {
	if len(data) > MaxImageSize {
		return "", "", ErrImageTooLarge
	}

	contentType = http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", "", ErrUnsupportedImage
	}
	return ext, contentType, nil
}

// ProfilePictureKey builds the object key for a user's profile picture.
func ProfilePictureKey(userID int64, ext string) string {
	return fmt.Sprintf("profile-pics/%d/%s.%s", userID, uuid.New().String(), ext)
}

// PostImageKey builds the object key for a post image.
func PostImageKey(postID int64, ext string) string {
	return fmt.Sprintf("post-images/%d/%s.%s", postID, uuid.New().String(), ext)
}

// Upload writes an object.
func (s *S3Storage) Upload(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %q: %w", key, err)
	}
	return nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

// PresignGet returns a time-limited GET URL built against the public
// endpoint. Callers hand the URL out as-is.
func (s *S3Storage) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %q: %w", key, err)
	}
	return req.URL, nil
}
