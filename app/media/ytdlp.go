package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// DownloadResult describes a source video fetched to local disk.
type DownloadResult struct {
	Path     string
	VideoID  string
	Title    string
	Duration float64
}

// YTDLPDownloader fetches source videos with the yt-dlp binary.
type YTDLPDownloader struct {
	binary string
	dir    string
}

func NewYTDLPDownloader(dir string) *YTDLPDownloader {
	return &YTDLPDownloader{binary: "yt-dlp", dir: dir}
}

// Download fetches the video behind videoURL into the downloader's
// directory, preferring an mp4 container, and probes its duration.
func (d *YTDLPDownloader) Download(ctx context.Context, videoURL string) (*DownloadResult, error) {
	args := []string{
		"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		"--no-playlist",
		"--merge-output-format", "mp4",
		"-o", filepath.Join(d.dir, "%(id)s.%(ext)s"),
		"--print", "after_move:filepath",
		"--print", "id",
		"--print", "title",
		"--no-simulate",
		"-q",
		videoURL,
	}

	cmd := exec.CommandContext(ctx, d.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Downloading video", "url", videoURL)

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to download video: %w: %s", err, lastLine(stderr.String()))
	}

	lines := nonEmptyLines(stdout.String())
	if len(lines) < 3 {
		return nil, fmt.Errorf("failed to download video: unexpected yt-dlp output %q", stdout.String())
	}

	result := &DownloadResult{
		Path:    lines[0],
		VideoID: lines[1],
		Title:   lines[2],
	}

	duration, err := ProbeDuration(ctx, result.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe downloaded video: %w", err)
	}
	result.Duration = duration

	return result, nil
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func lastLine(s string) string {
	lines := nonEmptyLines(s)
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
