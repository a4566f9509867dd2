package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"fieldops-service/internal/config"
)

// GCSSigner issues V4 signed URLs so devices upload photos and signatures
// straight to the bucket.
type GCSSigner struct {
	client *gcs.Client
	bucket string
	ttl    time.Duration
	log    zerolog.Logger
}

func NewGCSSigner(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger, opts ...option.ClientOption) (*GCSSigner, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET is required")
	}
	opts = append(opts, option.WithScopes(gcs.ScopeReadWrite))
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	log.Info().Str("bucket", cfg.Bucket).Dur("signed_url_ttl", cfg.SignedURLTTL).Msg("object storage initialized")

	return &GCSSigner{
		client: client,
		bucket: cfg.Bucket,
		ttl:    cfg.SignedURLTTL,
		log:    log,
	}, nil
}

func (s *GCSSigner) SignedUploadURL(ctx context.Context, key, contentType string) (string, time.Time, error) {
	expires := time.Now().Add(s.ttl)
	signed, err := s.client.Bucket(s.bucket).SignedURL(key, &gcs.SignedURLOptions{
		Scheme:      gcs.SigningSchemeV4,
		Method:      http.MethodPut,
		ContentType: contentType,
		Expires:     expires,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign upload url: %w", err)
	}
	return signed, expires, nil
}

func (s *GCSSigner) SignedDownloadURL(ctx context.Context, key string) (string, time.Time, error) {
	expires := time.Now().Add(s.ttl)
	signed, err := s.client.Bucket(s.bucket).SignedURL(key, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: expires,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download url: %w", err)
	}
	return signed, expires, nil
}

// ObjectURL is the stable reference stored on job records.
func (s *GCSSigner) ObjectURL(key string) string {
	return "https://storage.googleapis.com/" + s.bucket + "/" + (&url.URL{Path: key}).EscapedPath()
}

// ObjectKey reverses ObjectURL. ok is false for URLs outside the bucket.
func (s *GCSSigner) ObjectKey(objectURL string) (string, bool) {
	prefix := "https://storage.googleapis.com/" + s.bucket + "/"
	if len(objectURL) <= len(prefix) || objectURL[:len(prefix)] != prefix {
		return "", false
	}
	key, err := url.PathUnescape(objectURL[len(prefix):])
	if err != nil {
		return "", false
	}
	return key, true
}

func (s *GCSSigner) Close() error {
	return s.client.Close()
}
