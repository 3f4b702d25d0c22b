package config

const (
	defaultOutputDir           = "~/.local/share/vidshrink/movies/CompressedVideos"
	defaultLibraryDir          = "~/Videos/CompressedVideos"
	defaultStateDir            = "~/.local/state/vidshrink"
	defaultLogDir              = "~/.local/state/vidshrink/logs"
	defaultPreset              = "medium"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultVideoCodec          = "libx264"
	defaultEncoderPreset       = "medium"
	defaultMinFreeSpaceMB      = 1024
	defaultPlatformProfile     = "auto"
	defaultShareBackend        = "local"
	defaultShareLinkTTLHours   = 24
	defaultSFTPPort            = 22
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 14
	defaultNotifyItemFailures  = true
	defaultNotifyBatchComplete = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			LibraryDir: defaultLibraryDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Compression: Compression{
			DefaultPreset:  defaultPreset,
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			VideoCodec:     defaultVideoCodec,
			EncoderPreset:  defaultEncoderPreset,
			MinFreeSpaceMB: defaultMinFreeSpaceMB,
		},
		Platform: Platform{
			Profile: defaultPlatformProfile,
		},
		Share: Share{
			Backend:      defaultShareBackend,
			LinkTTLHours: defaultShareLinkTTLHours,
			SFTP: ShareSFTP{
				Port: defaultSFTPPort,
			},
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			ItemFailures:   defaultNotifyItemFailures,
			BatchComplete:  defaultNotifyBatchComplete,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
