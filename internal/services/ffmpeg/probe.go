package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"clipfit/internal/logging"
)

// Profile is an H.264 profile/level pair.
type Profile struct {
	Name  string
	Level string
}

func (p Profile) String() string {
	return p.Name + "@" + p.Level
}

// Client runs ffmpeg with a fixed binary and encoder tuning.
type Client struct {
	binary  string
	encoder string
	preset  string
	threads int
	logger  *slog.Logger

	mu       sync.Mutex
	decoders map[string]bool
	profiles map[string]bool
}

// Option customizes a Client.
type Option func(*Client)

// WithEncoder selects the H.264 encoder (libx264 by default).
func WithEncoder(name string) Option {
	return func(c *Client) {
		if name = strings.TrimSpace(name); name != "" {
			c.encoder = name
		}
	}
}

// WithPreset selects the encoder speed preset.
func WithPreset(preset string) Option {
	return func(c *Client) {
		if preset = strings.TrimSpace(preset); preset != "" {
			c.preset = preset
		}
	}
}

// WithThreads caps encoder threads; zero lets ffmpeg decide.
func WithThreads(n int) Option {
	return func(c *Client) { c.threads = n }
}

// WithLogger attaches a logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Client for binary.
func New(binary string, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	c := &Client{
		binary:   binary,
		encoder:  "libx264",
		preset:   "medium",
		logger:   logging.NewNop(),
		profiles: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Binary returns the ffmpeg executable in use.
func (c *Client) Binary() string { return c.binary }

// SupportsDecoder reports whether ffmpeg lists a decoder for codec.
func (c *Client) SupportsDecoder(ctx context.Context, codec string) (bool, error) {
	codec = strings.ToLower(strings.TrimSpace(codec))
	if codec == "" {
		return false, nil
	}
	decoders, err := c.listDecoders(ctx)
	if err != nil {
		return false, err
	}
	return decoders[codec], nil
}

func (c *Client) listDecoders(ctx context.Context) (map[string]bool, error) {
	c.mu.Lock()
	cached := c.decoders
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	cmd := newCommand(ctx, c.binary, "-hide_banner", "-decoders")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg -decoders: %w", err)
	}
	decoders := ParseDecoders(output)

	c.mu.Lock()
	c.decoders = decoders
	c.mu.Unlock()
	return decoders, nil
}

// ParseDecoders extracts video decoder names from `ffmpeg -decoders` output.
// Native decoders are also registered under the codec name they implement,
// so "h264" matches whether or not a wrapper decoder is present.
func ParseDecoders(output []byte) map[string]bool {
	return parseVideoCodecs(output)
}

// ParseEncoders extracts video encoder names from `ffmpeg -encoders` output.
func ParseEncoders(output []byte) map[string]bool {
	return parseVideoCodecs(output)
}

func parseVideoCodecs(output []byte) map[string]bool {
	names := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	started := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !started {
			if strings.HasPrefix(line, "------") {
				started = true
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields[0]) < 1 || fields[0][0] != 'V' {
			continue
		}
		names[strings.ToLower(fields[1])] = true
	}
	return names
}

// HasEncoder reports whether ffmpeg lists the configured H.264 encoder.
func (c *Client) HasEncoder(ctx context.Context) (bool, error) {
	output, err := newCommand(ctx, c.binary, "-hide_banner", "-encoders").Output()
	if err != nil {
		return false, fmt.Errorf("ffmpeg -encoders: %w", err)
	}
	return ParseEncoders(output)[strings.ToLower(c.encoder)], nil
}

// EncoderName returns the configured H.264 encoder.
func (c *Client) EncoderName() string { return c.encoder }

// SupportsProfile encodes a short synthetic clip to check that the encoder
// accepts profile at the given frame size.
func (c *Client) SupportsProfile(ctx context.Context, profile Profile, width, height int, fps float64) (bool, error) {
	key := fmt.Sprintf("%s/%dx%d@%s", profile, width, height, formatRate(fps))
	c.mu.Lock()
	supported, ok := c.profiles[key]
	c.mu.Unlock()
	if ok {
		return supported, nil
	}

	source := fmt.Sprintf("color=c=black:s=%dx%d:r=%s:d=0.1", width, height, formatRate(fps))
	cmd := newCommand(ctx, c.binary,
		"-hide_banner", "-v", "error", "-nostdin",
		"-f", "lavfi", "-i", source,
		"-c:v", c.encoder, "-profile:v", profile.Name, "-level:v", profile.Level,
		"-pix_fmt", "yuv420p", "-f", "null", "-",
	)
	tail := &stderrTail{}
	cmd.Stderr = tail
	err := cmd.Run()
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	supported = err == nil
	if !supported {
		c.logger.Debug("encoder profile rejected",
			logging.String("profile", profile.String()),
			logging.String("resolution", fmt.Sprintf("%dx%d", width, height)),
			logging.String("ffmpeg_stderr", tail.String()),
		)
	}

	c.mu.Lock()
	c.profiles[key] = supported
	c.mu.Unlock()
	return supported, nil
}

func formatRate(fps float64) string {
	if fps <= 0 {
		fps = 30
	}
	return strconv.FormatFloat(fps, 'f', -1, 64)
}
