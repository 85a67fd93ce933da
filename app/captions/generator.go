package captions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cliprelay/cliprelay/app/clip"
)

const fillCaption = "Check out this amazing content! 🔥"

// Completer produces a raw model response for a prompt pair.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Generator turns clip descriptions into ready-to-post caption sets.
type Generator struct {
	completer Completer
	templates Templates
	count     int
}

func NewGenerator(completer Completer, templates Templates, count int) *Generator {
	return &Generator{completer: completer, templates: templates, count: count}
}

// Generate asks the caption model for count captions describing the
// clip. Errors wrap ErrCaptionService so callers can switch to
// Fallback.
func (g *Generator) Generate(ctx context.Context, description, contextInfo string) ([]clip.Caption, error) {
	content, err := g.completer.Complete(ctx, g.templates.SystemPrompt, g.buildPrompt(description, contextInfo))
	if err != nil {
		return nil, fmt.Errorf("failed to generate captions: %w", err)
	}

	captions, err := parseCaptions(content, g.count, g.templates.HashtagCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptionService, err)
	}

	slog.Debug("Generated captions", "count", len(captions))

	return g.pad(captions), nil
}

// Fallback returns the canned caption set, expanded with the clip
// description. It never fails.
func (g *Generator) Fallback(description string) []clip.Caption {
	captions := make([]clip.Caption, 0, g.count)
	for _, tmpl := range g.templates.Fallbacks {
		if len(captions) == g.count {
			break
		}
		captions = append(captions, clip.Caption{
			Text:     expandTemplate(tmpl, description),
			Hashtags: g.templates.DefaultHashtags,
		})
	}
	return g.pad(captions)
}

func (g *Generator) pad(captions []clip.Caption) []clip.Caption {
	for len(captions) < g.count {
		captions = append(captions, clip.Caption{
			Text:     fillCaption,
			Hashtags: g.templates.DefaultHashtags,
		})
	}
	return captions[:g.count]
}

func (g *Generator) buildPrompt(description, contextInfo string) string {
	contextText := ""
	if contextInfo != "" {
		contextText = "\nAdditional Context: " + contextInfo
	}

	return fmt.Sprintf(`Generate exactly %d viral, highly engaging Instagram Reel captions.

Video Description: %s%s

Requirements for each caption:
1. Hook the viewer in the first 3-5 words
2. Keep main caption under %d characters (excluding hashtags)
3. Include %d relevant, trending hashtags
4. Use 2-4 strategic emojis
5. Include a call-to-action (question, tag someone, save/share prompt)

Return as JSON with this exact structure:
{
  "captions": [
    {
      "caption": "Your engaging caption text here with emojis 🎯",
      "hashtags": ["#hashtag1", "#hashtag2", "#hashtag3", "#hashtag4", "#hashtag5"]
    }
  ]
}

Make each caption unique and optimized for maximum engagement.`,
		g.count, description, contextText, g.templates.MaxCaptionLength, g.templates.HashtagCount)
}

// parseCaptions accepts the response shapes caption models actually
// return: an object with a "captions" or "data" array, a bare array,
// or arrays mixing objects and plain strings.
func parseCaptions(content string, count, hashtagLimit int) ([]clip.Caption, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw []json.RawMessage

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &wrapper); err == nil {
		for _, key := range []string{"captions", "data"} {
			if inner, ok := wrapper[key]; ok {
				if err := json.Unmarshal(inner, &raw); err != nil {
					return nil, fmt.Errorf("field %q is not an array", key)
				}
				break
			}
		}
		if raw == nil {
			if _, ok := wrapper["caption"]; ok {
				raw = []json.RawMessage{json.RawMessage(content)}
			}
		}
	} else if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("response is not valid JSON")
	}

	captions := make([]clip.Caption, 0, count)
	for _, entry := range raw {
		if len(captions) == count {
			break
		}

		var obj struct {
			Caption  string          `json:"caption"`
			Hashtags json.RawMessage `json:"hashtags"`
		}
		if err := json.Unmarshal(entry, &obj); err == nil && obj.Caption != "" {
			captions = append(captions, clip.Caption{
				Text:     obj.Caption,
				Hashtags: parseHashtags(obj.Hashtags, hashtagLimit),
			})
			continue
		}

		var text string
		if err := json.Unmarshal(entry, &text); err == nil && text != "" {
			captions = append(captions, clip.Caption{Text: text})
		}
	}

	if len(captions) == 0 {
		return nil, fmt.Errorf("no captions found in response")
	}

	return captions, nil
}

func parseHashtags(raw json.RawMessage, limit int) []string {
	if len(raw) == 0 {
		return nil
	}

	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		var joined string
		if err := json.Unmarshal(raw, &joined); err != nil {
			return nil
		}
		for _, t := range strings.Fields(joined) {
			if strings.HasPrefix(t, "#") {
				tags = append(tags, t)
			}
		}
	}

	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}
