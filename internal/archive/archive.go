// Package archive keeps the raw provider payloads a run ingested, so a lead
// can be traced back to exactly what the provider returned.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"prospecting_backend/platform/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Payload is one raw provider response.
type Payload struct {
	CompanyID  uuid.UUID
	Kind       string
	Identifier string
	Body       []byte
	FetchedAt  time.Time
}

// Archiver stores raw payloads and returns the object key.
type Archiver interface {
	Archive(ctx context.Context, p Payload) (string, error)
}

// Noop drops payloads; used when object storage is not configured.
type Noop struct{}

func (Noop) Archive(context.Context, Payload) (string, error) { return "", nil }

// MinIOArchiver writes payloads to an S3-compatible bucket.
type MinIOArchiver struct {
	client *minio.Client
	bucket string
}

// NewMinIOArchiver creates the archiver. It does not touch the bucket; call
// EnsureBucketExists at startup.
func NewMinIOArchiver(cfg config.MinIOConfig) (*MinIOArchiver, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOArchiver{client: client, bucket: cfg.GetArchiveBucket()}, nil
}

// Bucket returns the archive bucket name.
func (a *MinIOArchiver) Bucket() string {
	return a.bucket
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (a *MinIOArchiver) EnsureBucketExists(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
		}
	}

	return nil
}

func (a *MinIOArchiver) Archive(ctx context.Context, p Payload) (string, error) {
	key := ObjectKey(p)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(p.Body), int64(len(p.Body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload payload %s: %w", key, err)
	}
	return key, nil
}

// ObjectKey lays payloads out as <company>/<kind>/<identifier>/<timestamp>.json.
func ObjectKey(p Payload) string {
	at := p.FetchedAt
	if at.IsZero() {
		at = time.Now()
	}
	identifier := strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(p.Identifier))
	if identifier == "" {
		identifier = "unknown"
	}
	return fmt.Sprintf("%s/%s/%s/%s.json", p.CompanyID, p.Kind, identifier, at.UTC().Format("20060102T150405.000000000Z"))
}
