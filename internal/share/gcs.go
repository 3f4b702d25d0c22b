package share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"vidshrink/internal/config"
)

// GCS uploads files to a Cloud Storage bucket and returns V4 signed URLs.
type GCS struct {
	bucket          string
	prefix          string
	credentialsFile string
	ttl             time.Duration
}

// NewGCS validates cfg and returns a GCS backend. The client is created per
// Share call.
func NewGCS(cfg config.ShareGCS, ttl time.Duration) (*GCS, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("share gcs: bucket required")
	}
	return &GCS{
		bucket:          cfg.Bucket,
		prefix:          cfg.Prefix,
		credentialsFile: cfg.CredentialsFile,
		ttl:             ttl,
	}, nil
}

func (g *GCS) Name() string { return "gcs" }

// Share uploads every file and signs a GET URL for each.
func (g *GCS) Share(ctx context.Context, files []File) ([]Link, error) {
	var opts []option.ClientOption
	if g.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(g.credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	defer client.Close()

	bucket := client.Bucket(g.bucket)
	links := make([]Link, 0, len(files))
	for _, file := range files {
		name := objectKey(g.prefix, file.Name)
		if err := g.upload(ctx, bucket.Object(name), file.Path); err != nil {
			return links, err
		}
		expires := time.Now().Add(g.ttl)
		url, err := bucket.SignedURL(name, &storage.SignedURLOptions{
			Scheme:  storage.SigningSchemeV4,
			Method:  "GET",
			Expires: expires,
		})
		if err != nil {
			return links, fmt.Errorf("sign url for %s: %w", name, err)
		}
		links = append(links, Link{Paths: []string{file.Path}, URL: url, ExpiresAt: expires.UTC()})
	}
	return links, nil
}

func (g *GCS) upload(ctx context.Context, obj *storage.ObjectHandle, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %s: %w", obj.ObjectName(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish upload %s: %w", obj.ObjectName(), err)
	}
	return nil
}

var _ Backend = (*GCS)(nil)
