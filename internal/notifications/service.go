package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipfit/internal/bitrate"
	"clipfit/internal/config"
	"clipfit/internal/textutil"
)

const userAgent = "clipfit/0.1"

// Completed summarises a successful run.
type Completed struct {
	Filename     string
	OriginalSize int64
	OutputSize   int64
	OutputPath   string
	Attempts     int
	Elapsed      time.Duration
}

// Failed summarises a run that ended without an output.
type Failed struct {
	Filename   string
	Kind       string
	Message    string
	Suggestion string
}

// Service is the notification surface used by the daemon.
type Service interface {
	NotifyRunCompleted(ctx context.Context, run Completed) error
	NotifyRunFailed(ctx context.Context, run Failed) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, run Completed) error {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s: %s → %s", displayName(run.Filename),
		bitrate.FormatBytes(run.OriginalSize), bitrate.FormatBytes(run.OutputSize))
	if reduction := bitrate.Reduction(run.OriginalSize, run.OutputSize); reduction > 0 {
		fmt.Fprintf(&b, " (%.0f%% smaller)", reduction)
	}
	attempts := "attempt"
	if run.Attempts != 1 {
		attempts = "attempts"
	}
	fmt.Fprintf(&b, "\n%d %s in %s", run.Attempts, attempts, run.Elapsed.Round(time.Second))
	if path := strings.TrimSpace(run.OutputPath); path != "" {
		fmt.Fprintf(&b, "\nFile: %s", path)
	}
	return n.send(ctx, payload{
		title:   "Clipfit - Compressed",
		message: b.String(),
		tags:    []string{"clipfit", "compress", "completed"},
	})
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, run Failed) error {
	var b strings.Builder
	b.WriteString("❌ ")
	b.WriteString(displayName(run.Filename))
	b.WriteString(": ")
	if msg := strings.TrimSpace(run.Message); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("unknown error")
	}
	if hint := strings.TrimSpace(run.Suggestion); hint != "" {
		b.WriteString("\n")
		b.WriteString(hint)
	}
	title := "Clipfit - Failed"
	if kind := textutil.Title(run.Kind); kind != "" {
		title = fmt.Sprintf("Clipfit - %s Failure", kind)
	}
	return n.send(ctx, payload{
		title:    title,
		message:  b.String(),
		tags:     []string{"clipfit", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Clipfit - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"clipfit", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func displayName(filename string) string {
	if name := strings.TrimSpace(filename); name != "" {
		return name
	}
	return "video"
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, Completed) error { return nil }
func (noopService) NotifyRunFailed(context.Context, Failed) error       { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
