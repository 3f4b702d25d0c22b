package config

import (
	"errors"
	"fmt"
	"strings"

	"vidshrink/internal/platform"
	"vidshrink/internal/preset"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCompression(); err != nil {
		return err
	}
	if _, err := platform.Resolve(c.Platform.Profile); err != nil {
		return fmt.Errorf("platform.profile: %w", err)
	}
	if err := c.validateShare(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be >= 0")
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if c.Paths.OutputDir == c.Paths.LibraryDir {
		return errors.New("paths.output_dir and paths.library_dir must differ")
	}
	return nil
}

func (c *Config) validateCompression() error {
	if _, err := preset.Parse(c.Compression.DefaultPreset); err != nil {
		return fmt.Errorf("compression.default_preset: %w", err)
	}
	if c.Compression.Threads < 0 {
		return errors.New("compression.threads must be >= 0")
	}
	if c.Compression.MinFreeSpaceMB < 0 {
		return errors.New("compression.min_free_space_mb must be >= 0")
	}
	return nil
}

func (c *Config) validateShare() error {
	if c.Share.LinkTTLHours <= 0 {
		return errors.New("share.link_ttl_hours must be positive")
	}
	switch c.Share.Backend {
	case "local":
		return nil
	case "s3":
		if c.Share.S3.Bucket == "" || c.Share.S3.Region == "" {
			return errors.New("share.s3.bucket and share.s3.region are required for the s3 backend")
		}
	case "gcs":
		if c.Share.GCS.Bucket == "" {
			return errors.New("share.gcs.bucket is required for the gcs backend")
		}
	case "sftp":
		sftp := c.Share.SFTP
		if sftp.Host == "" || sftp.User == "" || sftp.RemoteDir == "" {
			return errors.New("share.sftp.host, share.sftp.user, and share.sftp.remote_dir are required for the sftp backend")
		}
		if sftp.Password == "" && sftp.PrivateKeyFile == "" {
			return errors.New("share.sftp requires password or private_key_file")
		}
		if sftp.Port <= 0 || sftp.Port > 65535 {
			return errors.New("share.sftp.port must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("share.backend: unsupported value %q (want local, s3, gcs, or sftp)", c.Share.Backend)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
