// Package storage implements the object-store port for originals, captured
// images and certified artifacts.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	gcs "cloud.google.com/go/storage"

	"firma/internal/domain"
)

const writeTimeout = 50 * time.Second

// GCS stores objects in a single Cloud Storage bucket.
type GCS struct {
	client *gcs.Client
	bucket string
}

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (s *GCS) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	const maxRetries = 4
	backoff := time.Second
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.write(ctx, path, data, contentType)
		if err == nil {
			return path, nil
		}
		lastErr = err
		slog.Warn("object write failed, will retry",
			"object", path,
			"attempt", attempt+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("write %s failed after retries: %w", path, lastErr)
}

func (s *GCS) write(ctx context.Context, path string, data []byte, contentType string) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(path).NewWriter(writeCtx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object write: %w", err)
	}
	return nil
}

func (s *GCS) Get(ctx context.Context, path string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if err != nil {
		if err == gcs.ErrObjectNotExist {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("open object %s: %w", path, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", path, err)
	}
	return data, nil
}

func (s *GCS) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	url, err := s.client.Bucket(s.bucket).SignedURL(path, &gcs.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(ttl),
		Scheme:  gcs.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", path, err)
	}
	return url, nil
}

var _ domain.ObjectStore = (*GCS)(nil)
