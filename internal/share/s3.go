package share

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vidshrink/internal/config"
)

type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type s3Presigner interface {
	PresignGetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3 uploads files to a bucket and returns presigned download URLs.
type S3 struct {
	bucket    string
	prefix    string
	ttl       time.Duration
	uploader  s3Uploader
	presigner s3Presigner
}

// NewS3 builds an S3 backend from static credentials.
func NewS3(cfg config.ShareS3, ttl time.Duration) (*S3, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("share s3: bucket required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		return nil, errors.New("share s3: region required")
	}
	opts := s3.Options{
		Region: cfg.Region,
	}
	if cfg.AccessKeyID != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	client := s3.New(opts)
	return &S3{
		bucket:    cfg.Bucket,
		prefix:    cfg.Prefix,
		ttl:       ttl,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
	}, nil
}

func (s *S3) Name() string { return "s3" }

// Share uploads each file and presigns a GET for it.
func (s *S3) Share(ctx context.Context, files []File) ([]Link, error) {
	links := make([]Link, 0, len(files))
	for _, file := range files {
		key := objectKey(s.prefix, file.Name)
		if err := s.upload(ctx, file, key); err != nil {
			return links, err
		}
		req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(s.ttl))
		if err != nil {
			return links, fmt.Errorf("presign %s: %w", key, err)
		}
		links = append(links, Link{
			Paths:     []string{file.Path},
			URL:       req.URL,
			ExpiresAt: time.Now().Add(s.ttl).UTC(),
		})
	}
	return links, nil
}

func (s *S3) upload(ctx context.Context, file File, key string) error {
	f, err := os.Open(file.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %s to bucket %s: %w", key, s.bucket, err)
	}
	return nil
}

var _ Backend = (*S3)(nil)
