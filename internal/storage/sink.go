// Package storage publishes evaluation artifacts to a local directory or an S3 bucket.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
)

// Sink stores an artifact under key and returns where it landed.
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// FileSink writes artifacts below a root directory.
type FileSink struct {
	Root   string
	logger *slog.Logger
}

func NewFileSink(root string, logger *slog.Logger) *FileSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSink{Root: root, logger: logger}
}

func (s *FileSink) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.Root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	s.logger.Info("storage.file.put", "path", dst, "bytes", len(data))
	return dst, nil
}

// cleanKey rejects keys that would escape the sink root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", common.NewAppError("INVALID_KEY", fmt.Sprintf("invalid storage key %q", key), common.ErrInvalidInput)
	}
	return k, nil
}

// Multi fans an artifact out to several sinks, stopping at the first failure.
type Multi []Sink

func (m Multi) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	var locations []string
	for _, s := range m {
		loc, err := s.Put(ctx, key, data, contentType)
		if err != nil {
			return strings.Join(locations, ","), err
		}
		locations = append(locations, loc)
	}
	return strings.Join(locations, ","), nil
}

// FromConfig builds the sinks enabled by cfg. It returns nil when none are.
func FromConfig(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (Sink, error) {
	var sinks Multi
	if cfg.ReportDir != "" {
		sinks = append(sinks, NewFileSink(cfg.ReportDir, logger))
	}
	if cfg.ReportBucket != "" {
		s3sink, err := NewS3Sink(ctx, S3Config{
			Bucket:    cfg.ReportBucket,
			Prefix:    cfg.ReportPrefix,
			Region:    cfg.AwsRegion,
			AccessKey: cfg.AwsAccessKey,
			SecretKey: cfg.AwsSecretKey,
		}, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3sink)
	}
	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	}
	return sinks, nil
}
