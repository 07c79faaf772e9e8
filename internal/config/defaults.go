package config

const (
	defaultConfigPath          = "~/.config/clipfit/config.toml"
	defaultStagingDir          = "~/.local/share/clipfit/staging"
	defaultLogDir              = "~/.local/share/clipfit/logs"
	defaultHistoryPath         = "~/.local/share/clipfit/history.db"
	defaultSocketPath          = "~/.local/share/clipfit/clipfit.sock"
	defaultLockPath            = "~/.local/share/clipfit/clipfit.lock"
	defaultAPIBind             = "127.0.0.1:7488"
	defaultTargetSize          = "10MiB"
	defaultAudioBitrate        = 96_000
	defaultOutputSuffix        = "_compressed"
	defaultMinTargetSize       = "1MiB"
	defaultMaxTargetSize       = "500MiB"
	defaultWarnInputSize       = "500MiB"
	defaultWarnDurationSeconds = 300
	defaultEncoder             = "libx264"
	defaultPreset              = "medium"
	defaultEventBuffer         = 1024
	defaultStagingMaxAgeHours  = 24
	defaultHistoryKeepRuns     = 500
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Compression: Compression{
			TargetSize:   defaultTargetSize,
			AudioBitrate: defaultAudioBitrate,
			OutputSuffix: defaultOutputSuffix,
		},
		Limits: Limits{
			MinTargetSize:       defaultMinTargetSize,
			MaxTargetSize:       defaultMaxTargetSize,
			WarnInputSize:       defaultWarnInputSize,
			WarnDurationSeconds: defaultWarnDurationSeconds,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			Encoder:       defaultEncoder,
			Preset:        defaultPreset,
		},
		Daemon: Daemon{
			SocketPath:         defaultSocketPath,
			LockPath:           defaultLockPath,
			APIBind:            defaultAPIBind,
			EventBuffer:        defaultEventBuffer,
			StagingMaxAgeHours: defaultStagingMaxAgeHours,
		},
		History: History{
			Enabled:  true,
			Path:     defaultHistoryPath,
			KeepRuns: defaultHistoryKeepRuns,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			OnSuccess:      true,
			OnFailure:      true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
