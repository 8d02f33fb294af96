// Package video re-encodes a clip once at the bitrate that approximates a
// requested output size.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"shrink/logger"
)

const (
	DefaultCodec        = "libx264"
	DefaultAudioBitrate = "128k"
)

// Reducer runs ffprobe and ffmpeg.
type Reducer struct {
	FFmpegPath   string
	FFprobePath  string
	Codec        string
	AudioBitrate string
}

// Result describes one finished encode.
type Result struct {
	Duration    float64
	BitrateKbps int
	Elapsed     time.Duration
}

// NewReducer fills empty fields with the defaults.
func NewReducer(ffmpeg, ffprobe, codec, audioBitrate string) *Reducer {
	r := &Reducer{FFmpegPath: ffmpeg, FFprobePath: ffprobe, Codec: codec, AudioBitrate: audioBitrate}
	if r.FFmpegPath == "" {
		r.FFmpegPath = "ffmpeg"
	}
	if r.FFprobePath == "" {
		r.FFprobePath = "ffprobe"
	}
	if r.Codec == "" {
		r.Codec = DefaultCodec
	}
	if r.AudioBitrate == "" {
		r.AudioBitrate = DefaultAudioBitrate
	}
	return r
}

// Available reports whether both commands can be found.
func (r *Reducer) Available() bool {
	if _, err := exec.LookPath(r.FFmpegPath); err != nil {
		return false
	}
	_, err := exec.LookPath(r.FFprobePath)
	return err == nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// parseDuration extracts format.duration from ffprobe's JSON output.
func parseDuration(out []byte) (float64, error) {
	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if probe.Format.Duration == "" {
		return 0, fmt.Errorf("%w: ffprobe reported no duration", ErrInvalidDuration)
	}
	d, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDuration, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %v seconds", ErrInvalidDuration, d)
	}
	return d, nil
}

// Probe returns the duration of input in seconds.
func (r *Reducer) Probe(ctx context.Context, input string) (float64, error) {
	args := []string{"-v", "error", "-show_entries", "format=duration", "-of", "json", input}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.FFprobePath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, commandError("ffprobe", err, stderr.String())
	}
	return parseDuration(stdout.Bytes())
}

// encodeArgs builds the single-pass constant bitrate ffmpeg invocation.
func (r *Reducer) encodeArgs(input, output string, kbps int) []string {
	return []string{
		"-y",
		"-i", input,
		"-c:v", r.Codec,
		"-b:v", fmt.Sprintf("%dk", kbps),
		"-b:a", r.AudioBitrate,
		output,
	}
}

// Compress probes input and re-encodes it to output so that the result lands
// near targetMB. There is exactly one ffmpeg run and no retry.
func (r *Reducer) Compress(ctx context.Context, input, output string, targetMB float64) (*Result, error) {
	duration, err := r.Probe(ctx, input)
	if err != nil {
		return nil, err
	}
	kbps, err := EncodeBitrateKbps(targetMB, duration)
	if err != nil {
		return nil, err
	}

	logger.Infof("encoding video: duration=%.2fs target=%vMB bitrate=%dk", duration, targetMB, kbps)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.FFmpegPath, r.encodeArgs(input, output, kbps)...)
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, commandError("ffmpeg", err, stderr.String())
	}

	return &Result{Duration: duration, BitrateKbps: kbps, Elapsed: time.Since(start)}, nil
}

// commandError keeps the last line of stderr, which is where ffmpeg puts the reason.
func commandError(name string, err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	lines := strings.Split(stderr, "\n")
	return fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(lines[len(lines)-1]))
}
