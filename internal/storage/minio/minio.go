package minio

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/princekumarofficial/submission-service/internal/config"
	"github.com/princekumarofficial/submission-service/internal/storage"
)

// Store is the MinIO-backed object store.
type Store struct {
	client        *minio.Client
	publicBaseURL string
}

// New creates a new MinIO store and makes sure the configured bucket exists.
func New(ctx context.Context, cfg config.ObjectStore) (*Store, error) {
	s, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := s.EnsureBucket(ctx, cfg.Bucket); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return s, nil
}

func newStore(cfg config.ObjectStore) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Store{
		client:        client,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *Store) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Put writes the object unless something already lives at objectPath.
// The stat-then-put check is not atomic; the uploader's per-call timestamp
// keeps real collisions out of reach.
func (s *Store) Put(ctx context.Context, bucket, objectPath string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.StatObject(ctx, bucket, objectPath, minio.StatObjectOptions{})
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s/%s", storage.ErrObjectExists, bucket, objectPath)
	case !isNotFound(err):
		return classify(fmt.Errorf("failed to stat object: %w", err), err)
	}

	_, err = s.client.PutObject(ctx, bucket, objectPath, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return classify(fmt.Errorf("failed to put object: %w", err), err)
	}
	return nil
}

// PublicURL returns the public URL for accessing media (the bucket must be
// public or fronted by a CDN configured as public_base_url).
func (s *Store) PublicURL(bucket, objectPath string) string {
	base := s.publicBaseURL
	if base == "" {
		endpoint := s.client.EndpointURL()
		base = endpoint.Scheme + "://" + endpoint.Host
	}
	return storage.PublicObjectURL(base, bucket, objectPath)
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}

func classify(wrapped, cause error) error {
	switch minio.ToErrorResponse(cause).Code {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %w", storage.ErrUnauthorized, wrapped)
	}
	return wrapped
}
