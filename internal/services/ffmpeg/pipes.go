package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
)

// Decoder streams raw RGBA frames from an input file.
type Decoder struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *stderrTail
	eof    bool
	once   sync.Once
	err    error
}

// StartDecoder launches ffmpeg decoding the first video stream of input.
// Frames are rotated into display orientation, matching media.FromProbe.
func (c *Client) StartDecoder(ctx context.Context, input string) (*Decoder, error) {
	cmd := newCommand(ctx, c.binary, decodeArgs(input)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdout: %w", err)
	}
	tail := &stderrTail{}
	cmd.Stderr = tail
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start decoder: %w", err)
	}
	return &Decoder{cmd: cmd, stdout: stdout, stderr: tail}, nil
}

// Read reads raw frame bytes.
func (d *Decoder) Read(p []byte) (int, error) {
	n, err := d.stdout.Read(p)
	if errors.Is(err, io.EOF) {
		d.eof = true
	}
	return n, err
}

// Close waits for the decoder to exit. A decoder closed before its output was
// drained is killed and its exit status ignored.
func (d *Decoder) Close() error {
	d.once.Do(func() {
		if !d.eof {
			_ = killGroup(d.cmd)
			_ = d.cmd.Wait()
			return
		}
		if err := d.cmd.Wait(); err != nil {
			d.err = fmt.Errorf("decoder exited: %w: %s", err, d.stderr.String())
		}
	})
	return d.err
}

// Stderr returns the tail of the decoder's diagnostic output.
func (d *Decoder) Stderr() string { return d.stderr.String() }

func decodeArgs(input string) []string {
	return []string{
		"-hide_banner", "-v", "error", "-nostdin",
		"-autorotate",
		"-i", input,
		"-map", "0:v:0", "-an", "-sn", "-dn",
		"-fps_mode", "passthrough",
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"pipe:1",
	}
}

// EncodeOptions describes one encoder process.
type EncodeOptions struct {
	Output           string
	Width            int
	Height           int
	FPS              float64
	VideoBitrate     int64
	Profile          Profile
	KeyframeInterval int
	// AudioInput and AudioStream select a track to copy; AudioStream < 0 disables audio.
	AudioInput  string
	AudioStream int
}

// encodeArgs renders the ffmpeg argument list for opts.
func (c *Client) encodeArgs(opts EncodeOptions) []string {
	rate := formatRate(opts.FPS)
	bitrate := strconv.FormatInt(opts.VideoBitrate, 10)
	gop := strconv.Itoa(max(opts.KeyframeInterval, 1))

	args := []string{
		"-hide_banner", "-v", "error", "-y",
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-r", rate,
		"-i", "pipe:0",
	}
	withAudio := opts.AudioStream >= 0 && opts.AudioInput != ""
	if withAudio {
		args = append(args, "-i", opts.AudioInput)
	}
	args = append(args, "-map", "0:v:0")
	if withAudio {
		args = append(args, "-map", "1:"+strconv.Itoa(opts.AudioStream), "-c:a", "copy", "-shortest")
	}
	args = append(args,
		"-c:v", c.encoder,
		"-preset", c.preset,
		"-profile:v", opts.Profile.Name,
		"-level:v", opts.Profile.Level,
		"-b:v", bitrate,
		"-maxrate", bitrate,
		"-bufsize", strconv.FormatInt(opts.VideoBitrate*2, 10),
		"-g", gop,
		"-keyint_min", gop,
		"-sc_threshold", "0",
		"-force_key_frames", "expr:eq(mod(n,"+gop+"),0)",
		"-pix_fmt", "yuv420p",
	)
	if c.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(c.threads))
	}
	args = append(args, "-movflags", "+faststart", "-f", "mp4", opts.Output)
	return args
}

// Encoder accepts raw RGBA frames and muxes an MP4.
type Encoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *stderrTail
	output string
	done   bool
}

// StartEncoder launches the encoder process.
func (c *Client) StartEncoder(ctx context.Context, opts EncodeOptions) (*Encoder, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("start encoder: invalid size %dx%d", opts.Width, opts.Height)
	}
	cmd := newCommand(ctx, c.binary, c.encodeArgs(opts)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdin: %w", err)
	}
	tail := &stderrTail{}
	cmd.Stderr = tail
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start encoder: %w", err)
	}
	return &Encoder{cmd: cmd, stdin: stdin, stderr: tail, output: opts.Output}, nil
}

// Write feeds raw frame bytes to the encoder.
func (e *Encoder) Write(p []byte) (int, error) {
	n, err := e.stdin.Write(p)
	if err != nil {
		return n, fmt.Errorf("encoder write: %w: %s", err, e.stderr.String())
	}
	return n, nil
}

// Finish closes stdin, waits for the muxer to flush, and returns the output size.
func (e *Encoder) Finish() (int64, error) {
	if e.done {
		return 0, errors.New("encoder already finished")
	}
	e.done = true
	closeErr := e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		_ = os.Remove(e.output)
		return 0, fmt.Errorf("encoder exited: %w: %s", err, e.stderr.String())
	}
	if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		return 0, fmt.Errorf("encoder stdin close: %w", closeErr)
	}
	info, err := os.Stat(e.output)
	if err != nil {
		return 0, fmt.Errorf("stat encoder output: %w", err)
	}
	return info.Size(), nil
}

// Abort kills the encoder and removes any partial output.
func (e *Encoder) Abort() {
	if e.done {
		return
	}
	e.done = true
	_ = e.stdin.Close()
	_ = killGroup(e.cmd)
	_ = e.cmd.Wait()
	_ = os.Remove(e.output)
}

// Output returns the encoder's output path.
func (e *Encoder) Output() string { return e.output }
