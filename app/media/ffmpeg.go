package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// TranscodeError wraps an ffmpeg failure with the tail of its stderr
// output so per-clip failures can be logged with a usable cause.
type TranscodeError struct {
	Src    string
	Detail string
	Err    error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("failed to transcode %s: %v: %s", e.Src, e.Err, e.Detail)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}

// FFmpegTranscoder cuts segments out of source videos and reframes
// them to a vertical output format.
type FFmpegTranscoder struct {
	binary  string
	width   int
	height  int
	bitrate string
}

func NewFFmpegTranscoder(width, height int, bitrate string) *FFmpegTranscoder {
	return &FFmpegTranscoder{
		binary:  "ffmpeg",
		width:   width,
		height:  height,
		bitrate: bitrate,
	}
}

// CutVertical extracts [start, end) from src, center-crops it to the
// target aspect ratio, scales it to the configured resolution and
// writes an H.264/AAC mp4 at 30fps to dst.
func (t *FFmpegTranscoder) CutVertical(ctx context.Context, src, dst string, start, end float64) error {
	filter := fmt.Sprintf(
		"crop='min(iw,ih*%d/%d)':'min(ih,iw*%d/%d)',scale=%d:%d,fps=30",
		t.width, t.height, t.height, t.width, t.width, t.height,
	)

	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-to", fmt.Sprintf("%.3f", end),
		"-i", src,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "medium",
		"-b:v", t.bitrate,
		"-c:a", "aac",
		"-movflags", "+faststart",
		dst,
	}

	cmd := exec.CommandContext(ctx, t.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &TranscodeError{Src: src, Detail: lastLine(stderr.String()), Err: err}
	}

	return nil
}
