package clip

import "sort"

// SelectorConfig tunes local segment selection.
type SelectorConfig struct {
	ClipLength      float64 // fixed interval length in seconds
	MaxClips        int     // desired clip count N
	MinStartSpacing float64 // minimum spacing between selected start points
	MotionThreshold float64 // minimum score for a viable window
}

// SelectSegments picks up to MaxClips non-overlapping intervals of the
// configured fixed length from a window score stream, ranked by descending
// score. Ties go to the earlier interval. When no window is viable the
// selector falls back to a single interval at time zero, clamped to the
// video duration, so every video yields at least one clip.
func SelectSegments(scores []WindowScore, videoDuration float64, cfg SelectorConfig) []Segment {
	if cfg.MaxClips <= 0 || videoDuration <= 0 {
		return nil
	}

	candidates := make([]Segment, 0, len(scores))
	for _, w := range scores {
		if w.Score < cfg.MotionThreshold {
			continue
		}
		if w.Start >= videoDuration {
			continue
		}
		end := w.Start + cfg.ClipLength
		if end > videoDuration {
			end = videoDuration
		}
		candidates = append(candidates, Segment{
			Start:      w.Start,
			End:        end,
			Score:      w.Score,
			Confidence: clampConfidence(w.Score * 1.5),
		})
	}

	if len(candidates) == 0 {
		return []Segment{fallbackSegment(videoDuration, cfg.ClipLength)}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Start < candidates[j].Start
	})

	selected := make([]Segment, 0, cfg.MaxClips)
	for _, cand := range candidates {
		if len(selected) == cfg.MaxClips {
			break
		}
		if tooClose(selected, cand, cfg.MinStartSpacing) {
			continue
		}
		selected = append(selected, cand)
	}

	return selected
}

func tooClose(selected []Segment, cand Segment, spacing float64) bool {
	for _, s := range selected {
		d := cand.Start - s.Start
		if d < 0 {
			d = -d
		}
		if d < spacing {
			return true
		}
	}
	return false
}

func fallbackSegment(videoDuration, clipLength float64) Segment {
	end := clipLength
	if end > videoDuration {
		end = videoDuration
	}
	return Segment{Start: 0, End: end, Score: 0.5, Confidence: 0.5}
}

func clampConfidence(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}
