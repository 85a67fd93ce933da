package captions

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultMaxCaptionLength = 150
	defaultHashtagCount     = 5
)

var defaultHashtags = []string{"#viral", "#trending", "#reels", "#fyp", "#foryou"}

var defaultFallbacks = []string{
	"Wait for it... 🔥 This {description} content is INSANE!",
	"You won't believe this! 😱 {description}",
	"Obsessed with this! 💯 Tag someone who needs to see this 👇",
	"Game changer! 🎯 Save this for later!",
	"This is why I'm obsessed! 🔥 What do you think? Comment below! 👇",
}

const defaultSystemPrompt = "You are a viral content strategist specializing in Instagram Reels. " +
	"Your captions maximize engagement, shares, and comments. " +
	"You understand trending formats, hooks, and hashtag strategies. " +
	"Always return valid JSON format."

// Templates holds the tunable parts of caption generation: the system
// prompt sent to the language model and the canned captions used when
// the model is unreachable. Values omitted from the file keep their
// defaults.
type Templates struct {
	SystemPrompt     string   `yaml:"system_prompt"`
	Fallbacks        []string `yaml:"fallbacks"`
	DefaultHashtags  []string `yaml:"default_hashtags"`
	MaxCaptionLength int      `yaml:"max_caption_length"`
	HashtagCount     int      `yaml:"hashtag_count"`
}

func DefaultTemplates() Templates {
	return Templates{
		SystemPrompt:     defaultSystemPrompt,
		Fallbacks:        defaultFallbacks,
		DefaultHashtags:  defaultHashtags,
		MaxCaptionLength: defaultMaxCaptionLength,
		HashtagCount:     defaultHashtagCount,
	}
}

// LoadTemplates reads a templates file from path. A missing file is
// not an error, it yields the built-in defaults.
func LoadTemplates(path string) (Templates, error) {
	t := DefaultTemplates()

	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, fmt.Errorf("failed to read caption templates: %w", err)
	}

	var loaded Templates
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return t, fmt.Errorf("failed to parse caption templates: %w", err)
	}

	if loaded.SystemPrompt != "" {
		t.SystemPrompt = loaded.SystemPrompt
	}
	if len(loaded.Fallbacks) > 0 {
		t.Fallbacks = loaded.Fallbacks
	}
	if len(loaded.DefaultHashtags) > 0 {
		t.DefaultHashtags = loaded.DefaultHashtags
	}
	if loaded.MaxCaptionLength > 0 {
		t.MaxCaptionLength = loaded.MaxCaptionLength
	}
	if loaded.HashtagCount > 0 {
		t.HashtagCount = loaded.HashtagCount
	}

	return t, nil
}

func expandTemplate(tmpl, description string) string {
	if len(description) > 50 {
		description = description[:50] + "..."
	}
	return strings.ReplaceAll(tmpl, "{description}", description)
}
