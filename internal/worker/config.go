package worker

import "clipfit/internal/config"

// ConfigOptions returns the Host options described by cfg.
func ConfigOptions(cfg *config.Config) []Option {
	opts := []Option{
		WithFFprobe(cfg.FFprobeBinary()),
		WithLimits(cfg.TargetLimits()),
		WithWarnings(cfg.WarnInputBytes(), cfg.Limits.WarnDurationSeconds),
		WithOutput(cfg.Paths.OutputDir, cfg.Compression.OutputSuffix),
		WithBuffer(cfg.Daemon.EventBuffer),
	}
	if cfg.Logging.File {
		opts = append(opts, WithRunLogDir(cfg.RunLogDir()))
	}
	return opts
}
