package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipfit/internal/bitrate"
	"clipfit/internal/config"
	"clipfit/internal/daemon"
	"clipfit/internal/deps"
	"clipfit/internal/encoding"
	"clipfit/internal/history"
	"clipfit/internal/ipc"
	"clipfit/internal/ladder"
	"clipfit/internal/logging"
	"clipfit/internal/media/ffprobe"
	"clipfit/internal/testsupport"
	"clipfit/internal/worker"
)

const mib = 1 << 20

type encodeFunc func(ctx context.Context, job encoding.Job, params bitrate.Params, progress func(float64)) (encoding.Output, error)

func (f encodeFunc) Encode(ctx context.Context, job encoding.Job, params bitrate.Params, progress func(float64)) (encoding.Output, error) {
	return f(ctx, job, params, progress)
}

// sizedEncoder writes a placeholder output and reports size as its length.
func sizedEncoder(size int64) encodeFunc {
	return func(_ context.Context, job encoding.Job, _ bitrate.Params, progress func(float64)) (encoding.Output, error) {
		if err := os.WriteFile(job.OutputPath, []byte("encoded"), 0o644); err != nil {
			return encoding.Output{}, err
		}
		progress(50)
		progress(100)
		return encoding.Output{Path: job.OutputPath, Size: size, Profile: encoding.Profiles[0]}, nil
	}
}

func blockingEncoder(started chan<- struct{}) encodeFunc {
	return func(ctx context.Context, _ encoding.Job, _ bitrate.Params, progress func(float64)) (encoding.Output, error) {
		progress(5)
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return encoding.Output{}, ctx.Err()
	}
}

func fakeProbe(_ context.Context, _ string, path string) (ffprobe.Result, error) {
	if _, err := os.Stat(path); err != nil {
		return ffprobe.Result{}, err
	}
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{Index: 0, CodecType: "video", CodecName: "h264", Width: 1280, Height: 720, AvgFrameRate: "30/1"}},
		Format:  ffprobe.Format{Duration: "20"},
	}, nil
}

// newTestConfig returns a config with its TOML file written under a
// throwaway HOME so no command touches the real user configuration.
func newTestConfig(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, string) {
	t.Helper()
	home := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Daemon.APIBind = ""
	configPath := filepath.Join(home, ".config", "clipfit", "config.toml")
	writeTestConfig(t, configPath, cfg)
	return cfg, configPath
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	socketPath string
	store      *history.Store
	daemon     *daemon.Daemon
}

// setupCLITestEnv starts an in-process daemon and IPC server backed by enc.
func setupCLITestEnv(t *testing.T, enc ladder.Encoder) *cliTestEnv {
	t.Helper()

	cfg, configPath := newTestConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	logger := logging.NewNop()

	d, err := daemon.New(cfg, store, logger, enc,
		daemon.WithDependencyCheck(func(context.Context, *config.Config) []deps.Status {
			return []deps.Status{{Name: "FFmpeg", Command: "ffmpeg", Available: true}}
		}),
		daemon.WithHostOptions(worker.WithProbe(fakeProbe)),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg.Daemon.SocketPath, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping daemon CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		socketPath: cfg.Daemon.SocketPath,
		store:      store,
		daemon:     d,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
