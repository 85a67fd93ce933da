package cfg

type Cfg struct {
	// Storage configuration
	DataDir      string
	RegistryFile string
	LedgerFile   string
	ClipsDir     string
	TempDir      string

	// Clip selection
	ClipsPerVideo   int
	TargetClipLen   int
	MinClipLen      int
	MaxClipLen      int
	WindowSeconds   int
	MotionThreshold float64
	MinStartSpacing int

	// Output format
	OutputWidth   int
	OutputHeight  int
	OutputBitrate string

	// Caption service
	CaptionAPIBase   string
	CaptionAPIKey    string
	CaptionModel     string
	CaptionCount     int
	CaptionTemplates string

	// Clipping API (optional remote segment scoring)
	ClippingAPIURL string
	ClippingAPIKey string

	// Approval gateway
	ApprovalEnabled bool
	GatewayURL      string
	GatewayToken    string

	// Posting
	PosterURL      string
	PosterToken    string
	MaxPostsPerRun int

	// Monitoring loop
	CheckIntervalMinutes int
	VideosPerCheck       int
	WorkerCount          int

	// HTTP API
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
