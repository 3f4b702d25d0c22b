package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidshrink/internal/config"
	"vidshrink/internal/logging"
)

var (
	// ErrGrantExpired means a local share grant is past its expiry.
	ErrGrantExpired = errors.New("share grant expired")
	// ErrGrantInvalid means a local share grant failed verification.
	ErrGrantInvalid = errors.New("share grant invalid")
	// ErrNothingToShare means none of the requested files exist.
	ErrNothingToShare = errors.New("nothing to share")
)

const contentType = "video/mp4"

// File is one local file handed to a backend.
type File struct {
	Path string
	Name string
	Size int64
}

// Link is a shareable reference to one or more files.
type Link struct {
	Paths     []string  `json:"paths"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Failure records a file that could not be shared.
type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result summarizes one share request.
type Result struct {
	Backend  string    `json:"backend"`
	Links    []Link    `json:"links"`
	Failures []Failure `json:"failures,omitempty"`
}

// Backend delivers files somewhere a recipient can read them.
type Backend interface {
	Name() string
	Share(ctx context.Context, files []File) ([]Link, error)
}

// Sharer validates files and delegates to a backend.
type Sharer struct {
	backend Backend
	logger  *slog.Logger
}

// New wraps backend.
func New(backend Backend, logger *slog.Logger) *Sharer {
	return &Sharer{backend: backend, logger: logging.NewComponentLogger(logger, "share")}
}

// Backend returns the configured backend.
func (s *Sharer) Backend() Backend {
	return s.backend
}

// Share shares every existing path. Missing files are reported as failures
// and do not stop the rest.
func (s *Sharer) Share(ctx context.Context, paths []string) (Result, error) {
	result := Result{Backend: s.backend.Name()}
	files := make([]File, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		switch {
		case err != nil:
			result.Failures = append(result.Failures, Failure{Path: path, Reason: "file not found"})
			continue
		case info.IsDir():
			result.Failures = append(result.Failures, Failure{Path: path, Reason: "not a file"})
			continue
		}
		files = append(files, File{Path: path, Name: filepath.Base(path), Size: info.Size()})
	}
	if len(files) == 0 {
		return result, ErrNothingToShare
	}

	links, err := s.backend.Share(ctx, files)
	if err != nil {
		logging.WarnWithContext(s.logger, "share failed", "share_failed",
			logging.String("backend", s.backend.Name()),
			logging.Int("file_count", len(files)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "no link was produced"),
		)
		return result, fmt.Errorf("share via %s: %w", s.backend.Name(), err)
	}
	result.Links = links
	s.logger.Info("shared outputs",
		logging.String(logging.FieldEventType, "share_complete"),
		logging.String("backend", s.backend.Name()),
		logging.Int("file_count", len(files)),
		logging.Int("link_count", len(links)),
	)
	return result, nil
}

// NewBackend builds the backend selected in cfg.
func NewBackend(cfg *config.Config, logger *slog.Logger) (Backend, error) {
	if cfg == nil {
		return nil, errors.New("share backend: config required")
	}
	ttl := cfg.Share.LinkTTL()
	switch strings.ToLower(strings.TrimSpace(cfg.Share.Backend)) {
	case "", "local":
		key, err := LoadOrCreateKey(cfg.ShareKeyPath())
		if err != nil {
			return nil, err
		}
		return NewLocal(key, ttl), nil
	case "s3":
		return NewS3(cfg.Share.S3, ttl)
	case "gcs":
		return NewGCS(cfg.Share.GCS, ttl)
	case "sftp":
		return NewSFTP(cfg.Share.SFTP, logger)
	default:
		return nil, fmt.Errorf("share backend: unsupported value %q", cfg.Share.Backend)
	}
}

func objectKey(prefix, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
