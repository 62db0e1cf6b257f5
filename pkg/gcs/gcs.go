// Package gcs uploads review artifacts to Google Cloud Storage.
//
// Two publication modes exist. CI runs authenticate with a service
// account key passed through the environment and emit a public URL
// under a PR-scoped object key. Manual publication signs a V4 GET URL
// instead, for buckets without public read access.
package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	perrors "github.com/mkondo/posegate/pkg/errors"
)

// Environment variables consumed by ConfigFromEnv.
const (
	EnvSAKeyJSON  = "GCP_SA_KEY_JSON"
	EnvProjectID  = "GCP_PROJECT_ID"
	EnvBucketName = "GCS_BUCKET_NAME"
	EnvPrefix     = "GCS_PREFIX"
	EnvPRNumber   = "PR_NUMBER"
)

// Defaults for the optional environment variables.
const (
	DefaultPrefix   = "runs"
	DefaultPRNumber = "local"
)

// RunIDLayout is the timestamp format for generated run identifiers.
const RunIDLayout = "20060102-150405"

// Config holds everything needed to reach the review bucket.
type Config struct {
	SAKeyJSON []byte
	ProjectID string
	Bucket    string
	Prefix    string
	PRNumber  string
}

// ConfigFromEnv assembles a Config from the environment. The service
// account key, project ID, and bucket name are required; a missing one
// is a MISSING_SECRET error naming the variable. Prefix and PR number
// fall back to "runs" and "local".
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{
		Prefix:   DefaultPrefix,
		PRNumber: DefaultPRNumber,
	}

	for _, req := range []struct {
		env string
		dst func(string)
	}{
		{EnvSAKeyJSON, func(v string) { cfg.SAKeyJSON = []byte(v) }},
		{EnvProjectID, func(v string) { cfg.ProjectID = v }},
		{EnvBucketName, func(v string) { cfg.Bucket = v }},
	} {
		v := os.Getenv(req.env)
		if v == "" {
			return nil, perrors.New(perrors.ErrCodeMissingSecret,
				"Missing environment variable: %s", req.env)
		}
		req.dst(v)
	}

	if v := os.Getenv(EnvPrefix); v != "" {
		cfg.Prefix = v
	}
	if v := os.Getenv(EnvPRNumber); v != "" {
		cfg.PRNumber = v
	}
	return cfg, nil
}

// NewRunID returns a fresh run identifier from the local clock.
func NewRunID() string {
	return time.Now().Format(RunIDLayout)
}

// ObjectKey builds the bucket object key for an uploaded artifact:
// <prefix>/PR-<pr>/<runID>/<basename>.
func ObjectKey(prefix, prNumber, runID, localPath string) string {
	return fmt.Sprintf("%s/PR-%s/%s/%s", prefix, prNumber, runID, filepath.Base(localPath))
}

// PublicURL returns the unauthenticated download URL for an object.
func PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}

// Client wraps a storage client bound to one bucket.
type Client struct {
	client *storage.Client
	bucket string
}

// NewClient authenticates with the service account key in cfg and
// binds to cfg.Bucket. Authentication problems surface as AUTH_FAILED.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	opts := []option.ClientOption{}
	if len(cfg.SAKeyJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(cfg.SAKeyJSON))
	}
	// Quota and billing attribution for the upload traffic.
	if cfg.ProjectID != "" {
		opts = append(opts, option.WithQuotaProject(cfg.ProjectID))
	}
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeAuthFailed, err, "Authentication failed")
	}
	return &Client{client: c, bucket: cfg.Bucket}, nil
}

// Close releases the underlying storage client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Upload streams a local file to the given object key with
// Cache-Control set to no-cache, so reviewers always see the latest
// render for a re-pushed PR.
func (c *Client) Upload(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return perrors.New(perrors.ErrCodeFileNotFound, "File not found: %s", localPath)
	}
	defer f.Close()

	obj := c.client.Bucket(c.bucket).Object(key)
	w := obj.NewWriter(ctx)
	w.CacheControl = "no-cache"
	w.ContentType = contentTypeFor(localPath)

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return perrors.Wrap(perrors.ErrCodeUploadFailed, err, "Upload failed: %s", key)
	}
	if err := w.Close(); err != nil {
		return perrors.Wrap(perrors.ErrCodeUploadFailed, err, "Upload failed: %s", key)
	}
	return nil
}

// contentTypeFor maps a file extension to the Content-Type stored on
// the object. Unknown extensions upload as octet-stream.
func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4":
		return "video/mp4"
	case ".png":
		return "image/png"
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".log", ".txt":
		return "text/plain"
	}
	return "application/octet-stream"
}

// SignedURL issues a V4 GET URL for an already uploaded object,
// expiring after the given duration.
func (c *Client) SignedURL(key string, expires time.Duration) (string, error) {
	url, err := c.client.Bucket(c.bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(expires),
	})
	if err != nil {
		return "", perrors.Wrap(perrors.ErrCodeUploadFailed, err, "sign URL for %s", key)
	}
	return url, nil
}
