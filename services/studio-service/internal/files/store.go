package files

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ObjectStore holds reference images for projects and measurement sheets.
// Keys, not URLs, are recorded on the owning rows.
type ObjectStore interface {
	Upload(ctx context.Context, ownerID, kind string, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// Store is the S3-backed ObjectStore. With no bucket configured uploads are
// rejected, which keeps image fields optional end to end.
type Store struct {
	bucket    string
	publicURL string
	s3Client  S3API
	logger    *slog.Logger
}

func NewStore(s3Client S3API, bucket, publicURL string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{bucket: bucket, publicURL: publicURL, s3Client: s3Client, logger: logger}
}

func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Upload writes the image under a date-partitioned key scoped by owner and
// kind ("projects" or "measurements") and returns the key.
func (s *Store) Upload(ctx context.Context, ownerID, kind string, contentType string, data []byte) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("files: object storage not configured")
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("%s/%s/%d/%02d/%s%s",
		kind, ownerID, now.Year(), now.Month(), uuid.NewString(), extensionFor(contentType))

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("files: s3 put %s: %w", key, err)
	}

	s.logger.Info("uploaded reference image", "key", key, "bytes", len(data))
	return key, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("files: s3 delete %s: %w", key, err)
	}
	return nil
}

// PublicURL derives the browser-facing URL for a stored key.
func (s *Store) PublicURL(key string) string {
	if s.publicURL == "" {
		return path.Join("/", key)
	}
	return s.publicURL + "/" + key
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
