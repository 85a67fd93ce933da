package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DataDir      string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for persisted state and clip output"`
	RegistryFile string `long:"registry-file" env:"REGISTRY_FILE" default:"creators.json" description:"Creator registry file name (relative to data dir)"`
	LedgerFile   string `long:"ledger-file" env:"LEDGER_FILE" default:"processed_videos.json" description:"Processed-video ledger file name (relative to data dir)"`
	ClipsDir     string `long:"clips-dir" env:"CLIPS_DIR" default:"clips" description:"Clip output directory name (relative to data dir)"`
	TempDir      string `long:"temp-dir" env:"TEMP_DIR" default:"tmp" description:"Temporary download directory name (relative to data dir)"`

	// Clip selection
	ClipsPerVideo   int     `long:"clips-per-video" env:"CLIPS_PER_VIDEO" default:"3" description:"Default number of clips to extract per video"`
	TargetClipLen   int     `long:"target-clip-length" env:"TARGET_CLIP_LENGTH" default:"30" description:"Target clip length in seconds"`
	MinClipLen      int     `long:"min-clip-length" env:"MIN_CLIP_LENGTH" default:"15" description:"Minimum clip length in seconds"`
	MaxClipLen      int     `long:"max-clip-length" env:"MAX_CLIP_LENGTH" default:"60" description:"Maximum clip length in seconds"`
	WindowSeconds   int     `long:"window-seconds" env:"WINDOW_SECONDS" default:"5" description:"Motion scoring window size in seconds"`
	MotionThreshold float64 `long:"motion-threshold" env:"MOTION_THRESHOLD" default:"0.3" description:"Minimum normalized motion score for a viable window"`
	MinStartSpacing int     `long:"min-start-spacing" env:"MIN_START_SPACING" default:"20" description:"Minimum spacing in seconds between selected clip start points"`

	// Output format
	OutputWidth   int    `long:"output-width" env:"OUTPUT_WIDTH" default:"1080" description:"Output clip width in pixels"`
	OutputHeight  int    `long:"output-height" env:"OUTPUT_HEIGHT" default:"1920" description:"Output clip height in pixels"`
	OutputBitrate string `long:"output-bitrate" env:"OUTPUT_BITRATE" default:"8000k" description:"Output clip video bitrate"`

	// Caption service
	CaptionAPIBase   string `long:"caption-api-base" env:"CAPTION_API_BASE" default:"https://api.openai.com/v1" description:"Caption service base URL (OpenAI-compatible)"`
	CaptionAPIKey    string `long:"caption-api-key" env:"CAPTION_API_KEY" description:"Caption service API key"`
	CaptionModel     string `long:"caption-model" env:"CAPTION_MODEL" default:"gpt-4" description:"Caption service model name"`
	CaptionCount     int    `long:"caption-count" env:"CAPTION_COUNT" default:"5" description:"Number of caption candidates per clip"`
	CaptionTemplates string `long:"caption-templates" env:"CAPTION_TEMPLATES" default:"./captions.yml" description:"YAML file with prompt settings and fallback captions"`

	// Clipping API (optional)
	ClippingAPIURL string `long:"clipping-api-url" env:"CLIPPING_API_URL" description:"Remote clipping API base URL (optional, falls back to local scoring)"`
	ClippingAPIKey string `long:"clipping-api-key" env:"CLIPPING_API_KEY" description:"Remote clipping API key"`

	// Approval gateway
	ApprovalEnabled bool   `long:"approval-enabled" env:"APPROVAL_ENABLED" description:"Send clips to the messaging gateway for human approval"`
	GatewayURL      string `long:"gateway-url" env:"GATEWAY_URL" description:"Messaging gateway base URL for approval requests"`
	GatewayToken    string `long:"gateway-token" env:"GATEWAY_TOKEN" description:"Messaging gateway auth token"`

	// Posting
	PosterURL      string `long:"poster-url" env:"POSTER_URL" description:"Posting service base URL"`
	PosterToken    string `long:"poster-token" env:"POSTER_TOKEN" description:"Posting service auth token"`
	MaxPostsPerRun int    `long:"max-posts-per-run" env:"MAX_POSTS_PER_RUN" default:"5" description:"Maximum approved clips posted per post-approved invocation"`

	// Monitoring loop
	CheckIntervalMinutes int `long:"check-interval" env:"CHECK_INTERVAL_MINUTES" default:"60" description:"Default creator check interval in minutes"`
	VideosPerCheck       int `long:"videos-per-check" env:"VIDEOS_PER_CHECK" default:"5" description:"Number of latest channel videos considered per check"`
	WorkerCount          int `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of background workers (external services are rate limited; keep at 1)"`

	// HTTP API
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"ClipRelay/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses configuration from command-line flags and environment variables.
// Unknown positional arguments are returned for command dispatch.
func Load(args []string) (*Cfg, []string, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.HelpFlag|flags.PassDoubleDash)

	rest, err := parser.ParseArgs(args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				fmt.Println(flagsErr.Message)
				return nil, nil, nil
			}
		}
		return nil, nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DataDir:              raw.DataDir,
		RegistryFile:         raw.RegistryFile,
		LedgerFile:           raw.LedgerFile,
		ClipsDir:             raw.ClipsDir,
		TempDir:              raw.TempDir,
		ClipsPerVideo:        raw.ClipsPerVideo,
		TargetClipLen:        raw.TargetClipLen,
		MinClipLen:           raw.MinClipLen,
		MaxClipLen:           raw.MaxClipLen,
		WindowSeconds:        raw.WindowSeconds,
		MotionThreshold:      raw.MotionThreshold,
		MinStartSpacing:      raw.MinStartSpacing,
		OutputWidth:          raw.OutputWidth,
		OutputHeight:         raw.OutputHeight,
		OutputBitrate:        raw.OutputBitrate,
		CaptionAPIBase:       raw.CaptionAPIBase,
		CaptionAPIKey:        raw.CaptionAPIKey,
		CaptionModel:         raw.CaptionModel,
		CaptionCount:         raw.CaptionCount,
		CaptionTemplates:     raw.CaptionTemplates,
		ClippingAPIURL:       raw.ClippingAPIURL,
		ClippingAPIKey:       raw.ClippingAPIKey,
		ApprovalEnabled:      raw.ApprovalEnabled,
		GatewayURL:           raw.GatewayURL,
		GatewayToken:         raw.GatewayToken,
		PosterURL:            raw.PosterURL,
		PosterToken:          raw.PosterToken,
		MaxPostsPerRun:       raw.MaxPostsPerRun,
		CheckIntervalMinutes: raw.CheckIntervalMinutes,
		VideosPerCheck:       raw.VideosPerCheck,
		WorkerCount:          raw.WorkerCount,
		Port:                 raw.Port,
		APIAccessKey:         raw.APIAccessKey,
		UserAgent:            raw.UserAgent,
		Timezone:             raw.Timezone,
		Debug:                raw.Debug,
		Version:              GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, rest, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
