package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for all nil handlers")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newFanoutHandler(infoHandler, debugHandler)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout to be enabled for debug")
	}
	logger := slog.New(h)
	logger.Debug("debug only message")

	if infoBuf.Len() != 0 {
		t.Fatal("info handler should not receive debug messages")
	}
	if debugBuf.Len() == 0 {
		t.Fatal("debug handler should receive debug messages")
	}
}

func TestFanoutHandlerPropagatesAttrsAndGroups(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("key", "value")}).WithGroup("grp"))
	logger.Info("test", slog.String("field", "x"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"key"`)) || !bytes.Contains(buf.Bytes(), []byte(`"grp"`)) {
			t.Fatalf("handler %d missing attrs or group: %s", i, buf.String())
		}
	}
}

func TestTeeLoggerNilBase(t *testing.T) {
	var teeBuf bytes.Buffer
	logger := TeeLogger(nil, slog.NewJSONHandler(&teeBuf, nil))
	logger.Info("no base")
	if teeBuf.Len() == 0 {
		t.Fatal("expected output in tee buffer")
	}
}

func TestOpenRunLogCapturesDebug(t *testing.T) {
	var baseBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	dir := t.TempDir()

	logger, closer, err := OpenRunLog(base, dir, "run-abc")
	if err != nil {
		t.Fatalf("OpenRunLog: %v", err)
	}
	logger.Debug("frame skipped")
	logger.Info("attempt complete")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "run-abc.log"))
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if !strings.Contains(string(content), "frame skipped") || !strings.Contains(string(content), "attempt complete") {
		t.Fatalf("run log missing records: %s", content)
	}
	if strings.Contains(baseBuf.String(), "frame skipped") {
		t.Fatal("base logger should not receive debug records")
	}
}

func TestOpenRunLogWithoutDirectory(t *testing.T) {
	base := NewNop()
	logger, closer, err := OpenRunLog(base, "", "run")
	if err != nil {
		t.Fatalf("OpenRunLog: %v", err)
	}
	if logger != base {
		t.Fatal("expected base logger to be returned")
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
