package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCompression()
	if err := c.normalizeShare(); err != nil {
		return err
	}
	c.Platform.Profile = strings.ToLower(strings.TrimSpace(c.Platform.Profile))
	if c.Platform.Profile == "" {
		c.Platform.Profile = defaultPlatformProfile
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCompression() {
	c.Compression.DefaultPreset = strings.ToLower(strings.TrimSpace(c.Compression.DefaultPreset))
	if c.Compression.DefaultPreset == "" {
		c.Compression.DefaultPreset = defaultPreset
	}
	if strings.TrimSpace(c.Compression.FFmpegBinary) == "" {
		c.Compression.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Compression.FFprobeBinary) == "" {
		c.Compression.FFprobeBinary = defaultFFprobeBinary
	}
	if strings.TrimSpace(c.Compression.VideoCodec) == "" {
		c.Compression.VideoCodec = defaultVideoCodec
	}
	if strings.TrimSpace(c.Compression.EncoderPreset) == "" {
		c.Compression.EncoderPreset = defaultEncoderPreset
	}
}

func (c *Config) normalizeShare() error {
	c.Share.Backend = strings.ToLower(strings.TrimSpace(c.Share.Backend))
	if c.Share.Backend == "" {
		c.Share.Backend = defaultShareBackend
	}
	var err error
	if c.Share.KeyFile, err = expandPath(strings.TrimSpace(c.Share.KeyFile)); err != nil {
		return fmt.Errorf("share.key_file: %w", err)
	}

	s3 := &c.Share.S3
	if s3.AccessKeyID == "" {
		s3.AccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	}
	if s3.SecretAccessKey == "" {
		s3.SecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	}
	if s3.Region == "" {
		s3.Region = strings.TrimSpace(os.Getenv("AWS_REGION"))
	}

	gcs := &c.Share.GCS
	if gcs.CredentialsFile == "" {
		gcs.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if gcs.CredentialsFile, err = expandPath(gcs.CredentialsFile); err != nil {
		return fmt.Errorf("share.gcs.credentials_file: %w", err)
	}

	sftp := &c.Share.SFTP
	if sftp.Password == "" {
		sftp.Password = os.Getenv("VIDSHRINK_SFTP_PASSWORD")
	}
	if sftp.Port == 0 {
		sftp.Port = defaultSFTPPort
	}
	if sftp.PrivateKeyFile, err = expandPath(sftp.PrivateKeyFile); err != nil {
		return fmt.Errorf("share.sftp.private_key_file: %w", err)
	}
	if sftp.KnownHostsFile, err = expandPath(sftp.KnownHostsFile); err != nil {
		return fmt.Errorf("share.sftp.known_hosts_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
