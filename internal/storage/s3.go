package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string // empty uses the default credential chain
	SecretKey string
}

// S3Sink uploads artifacts to a bucket.
type S3Sink struct {
	uploader *manager.Uploader
	cfg      S3Config
	logger   *slog.Logger
}

func NewS3Sink(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name not set")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("AWS_REGION not set")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3SinkFromClient(s3.NewFromConfig(awsCfg), cfg, logger), nil
}

// NewS3SinkFromClient wraps an existing client.
func NewS3SinkFromClient(client manager.UploadAPIClient, cfg S3Config, logger *slog.Logger) *S3Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Sink{uploader: manager.NewUploader(client), cfg: cfg, logger: logger}
}

// Key joins the configured prefix and key.
func (s *S3Sink) Key(key string) string {
	k, err := cleanKey(key)
	if err != nil {
		k = key
	}
	p := strings.Trim(s.cfg.Prefix, "/")
	if p == "" {
		return k
	}
	return p + "/" + k
}

func (s *S3Sink) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if _, err := cleanKey(key); err != nil {
		return "", err
	}
	objectKey := s.Key(key)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(objectKey),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	ctxUpload, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if _, err := s.uploader.Upload(ctxUpload, input); err != nil {
		s.logger.Error("storage.s3.put.failed", "bucket", s.cfg.Bucket, "key", objectKey, "error", err)
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	loc := fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, objectKey)
	s.logger.Info("storage.s3.put", "location", loc, "bytes", len(data))
	return loc, nil
}
