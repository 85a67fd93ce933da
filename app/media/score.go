package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cliprelay/cliprelay/app/clip"
)

// BitrateScorer estimates per-window action intensity from the encoded
// bitrate of the source video. Busy footage compresses poorly, so
// windows with a high byte count correlate with on-screen motion.
type BitrateScorer struct {
	binary        string
	windowSeconds float64
}

func NewBitrateScorer(windowSeconds float64) *BitrateScorer {
	return &BitrateScorer{binary: "ffprobe", windowSeconds: windowSeconds}
}

// Score returns one normalized score per window across the whole video,
// ordered by window start time. Scores are scaled so the busiest window
// is 1.0.
func (s *BitrateScorer) Score(ctx context.Context, path string) ([]clip.WindowScore, error) {
	cmd := exec.CommandContext(ctx, s.binary,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "packet=pts_time,size",
		"-of", "csv=p=0",
		path,
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to probe video packets: %w", err)
	}

	return scoreWindows(stdout.String(), s.windowSeconds)
}

func scoreWindows(packetCSV string, windowSeconds float64) ([]clip.WindowScore, error) {
	if windowSeconds <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %f", windowSeconds)
	}

	windowBytes := map[int]float64{}
	maxWindow := -1

	for _, line := range strings.Split(packetCSV, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			continue
		}

		ptsTime, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}

		window := int(ptsTime / windowSeconds)
		windowBytes[window] += size
		if window > maxWindow {
			maxWindow = window
		}
	}

	if maxWindow < 0 {
		return nil, nil
	}

	var peak float64
	for _, b := range windowBytes {
		if b > peak {
			peak = b
		}
	}

	scores := make([]clip.WindowScore, 0, maxWindow+1)
	for i := 0; i <= maxWindow; i++ {
		score := 0.0
		if peak > 0 {
			score = windowBytes[i] / peak
		}
		scores = append(scores, clip.WindowScore{
			Start: float64(i) * windowSeconds,
			Score: score,
		})
	}

	return scores, nil
}
