package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrTranscode is returned when the audio cannot be normalized.
var ErrTranscode = errors.New("audio transcode failed")

// Transcoder normalizes an upload into the WAV format the transcribers expect.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string) error
}

// FFmpegTranscoder shells out to ffmpeg to produce mono 16-bit PCM WAV.
type FFmpegTranscoder struct {
	Path       string // ffmpeg binary, default "ffmpeg"
	SampleRate int    // default 16000
}

// NewFFmpegTranscoder returns a transcoder using the given binary and rate.
func NewFFmpegTranscoder(path string, sampleRate int) *FFmpegTranscoder {
	return &FFmpegTranscoder{Path: path, SampleRate: sampleRate}
}

// Args returns the ffmpeg arguments for converting src to dst.
func (t *FFmpegTranscoder) Args(src, dst string) []string {
	rate := t.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	return []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-i", src,
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"-acodec", "pcm_s16le",
		"-f", "wav",
		dst,
	}
}

// Transcode converts src into dst. On failure dst is removed and the error
// carries ffmpeg's stderr.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, src, dst string) error {
	bin := t.Path
	if bin == "" {
		bin = "ffmpeg"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, t.Args(src, dst)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(dst)
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrTranscode, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: %s", ErrTranscode, msg)
	}
	return nil
}
