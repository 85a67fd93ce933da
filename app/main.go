package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cliprelay/cliprelay/app/api"
	"github.com/cliprelay/cliprelay/app/approval"
	"github.com/cliprelay/cliprelay/app/captions"
	"github.com/cliprelay/cliprelay/app/cfg"
	"github.com/cliprelay/cliprelay/app/channel"
	"github.com/cliprelay/cliprelay/app/clipapi"
	"github.com/cliprelay/cliprelay/app/gateway"
	"github.com/cliprelay/cliprelay/app/media"
	"github.com/cliprelay/cliprelay/app/pipeline"
	"github.com/cliprelay/cliprelay/app/poster"
	"github.com/cliprelay/cliprelay/app/store"
	"github.com/cliprelay/cliprelay/app/tasks"
)

func main() {
	_ = godotenv.Load()

	appCfg, rest, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	app, err := newApp(appCfg)
	if err != nil {
		slog.Error("Startup failed", "error", err)
		os.Exit(1)
	}

	command := "run"
	if len(rest) > 0 {
		command = rest[0]
		rest = rest[1:]
	}

	if err := app.dispatch(command, rest); err != nil {
		slog.Error("Command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

// application holds the wired components shared by every command.
type application struct {
	cfg       *cfg.Cfg
	registry  *store.CreatorRegistry
	ledger    *store.ProcessedLedger
	manifests *store.ManifestStore
	lister    channel.Lister
	bundler   *pipeline.Bundler
	tracker   *approval.Tracker
	publisher tasks.Publisher
}

func newApp(appCfg *cfg.Cfg) (*application, error) {
	dataDir := appCfg.DataDir
	tempDir := filepath.Join(dataDir, appCfg.TempDir)
	for _, dir := range []string{dataDir, tempDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	registry, err := store.NewCreatorRegistry(filepath.Join(dataDir, appCfg.RegistryFile), appCfg.CheckIntervalMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to open creator registry: %w", err)
	}

	ledger, err := store.NewProcessedLedger(filepath.Join(dataDir, appCfg.LedgerFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open processed ledger: %w", err)
	}

	manifests, err := store.NewManifestStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest store: %w", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	lister := channel.NewService(
		channel.NewRSSLister(httpClient, appCfg.UserAgent),
		channel.NewFlatLister(),
	)

	templates, err := captions.LoadTemplates(appCfg.CaptionTemplates)
	if err != nil {
		return nil, err
	}
	captioner := captions.NewGenerator(
		captions.NewClient(appCfg.CaptionAPIBase, appCfg.CaptionAPIKey, appCfg.CaptionModel),
		templates, appCfg.CaptionCount)

	tracker := approval.NewTracker(
		gateway.NewClient(appCfg.GatewayURL, appCfg.GatewayToken), manifests)

	var review pipeline.ReviewSubmitter
	if appCfg.ApprovalEnabled {
		review = tracker
	}

	bundler := pipeline.NewBundler(
		media.NewYTDLPDownloader(tempDir),
		media.NewFFmpegTranscoder(appCfg.OutputWidth, appCfg.OutputHeight, appCfg.OutputBitrate),
		media.NewBitrateScorer(float64(appCfg.WindowSeconds)),
		clipapi.NewClient(appCfg.ClippingAPIURL, appCfg.ClippingAPIKey),
		captioner,
		review,
		manifests,
		pipeline.Options{
			ClipsDir:        filepath.Join(dataDir, appCfg.ClipsDir),
			ClipsPerVideo:   appCfg.ClipsPerVideo,
			TargetClipLen:   float64(appCfg.TargetClipLen),
			MinClipLen:      float64(appCfg.MinClipLen),
			MaxClipLen:      float64(appCfg.MaxClipLen),
			MinStartSpacing: float64(appCfg.MinStartSpacing),
			MotionThreshold: appCfg.MotionThreshold,
			OutputWidth:     appCfg.OutputWidth,
			OutputHeight:    appCfg.OutputHeight,
		},
	)

	var publisher tasks.Publisher
	if appCfg.PosterURL != "" {
		publisher = poster.NewClient(appCfg.PosterURL, appCfg.PosterToken)
	}

	return &application{
		cfg:       appCfg,
		registry:  registry,
		ledger:    ledger,
		manifests: manifests,
		lister:    lister,
		bundler:   bundler,
		tracker:   tracker,
		publisher: publisher,
	}, nil
}

func (a *application) dispatch(command string, args []string) error {
	switch command {
	case "run":
		return a.runServer()
	case "add-creator":
		return a.addCreator(args)
	case "remove-creator":
		return a.removeCreator(args)
	case "list-creators":
		return a.listCreators()
	case "check":
		return a.checkCreators(args)
	case "record-approval":
		return a.recordApproval(args)
	case "post-approved":
		return a.postApproved()
	default:
		return fmt.Errorf("unknown command %q (expected run, add-creator, remove-creator, list-creators, check, record-approval or post-approved)", command)
	}
}

func (a *application) runServer() error {
	if err := media.CheckDependencies(); err != nil {
		return err
	}

	slog.Info("Starting ClipRelay", "version", a.cfg.Version, "creators", a.registry.Count())

	scheduler := tasks.NewScheduler(a.registry, a.ledger, a.manifests, a.lister, a.bundler, a.publisher)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(a.registry, a.ledger, a.manifests, a.tracker,
		scheduler, a.lister, a.bundler, a.cfg.VideosPerCheck)
	server := api.NewServer(handler, a.cfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", a.cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	return nil
}

func (a *application) addCreator(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: add-creator <name> <channel_url> [instagram_handle] [payment_link]")
	}

	creator := store.Creator{
		Name:       args[0],
		ChannelURL: args[1],
		Active:     true,
	}
	if len(args) > 2 {
		creator.DestinationHandle = args[2]
	}
	if len(args) > 3 {
		creator.PaymentLink = args[3]
	}

	if err := a.registry.Add(creator); err != nil {
		return err
	}

	slog.Info("Added creator", "name", creator.Name, "channel", creator.ChannelURL)
	return nil
}

func (a *application) removeCreator(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: remove-creator <name>")
	}

	if err := a.registry.Remove(args[0]); err != nil {
		return err
	}

	slog.Info("Removed creator", "name", args[0])
	return nil
}

func (a *application) listCreators() error {
	if a.registry.Count() == 0 {
		fmt.Println("No creators registered")
		return nil
	}

	for creator := range a.registry.All() {
		status := "active"
		if !creator.Active {
			status = "disabled"
		}
		lastChecked := "never"
		if creator.LastCheckedAt != nil {
			lastChecked = creator.LastCheckedAt.Format(time.RFC3339)
		}
		fmt.Printf("%s\t%s\t%s\tlast checked: %s\n", creator.Name, creator.ChannelURL, status, lastChecked)
	}
	return nil
}

// checkCreators runs one synchronous check pass, for a single creator
// when named or for every active creator otherwise.
func (a *application) checkCreators(args []string) error {
	if err := media.CheckDependencies(); err != nil {
		return err
	}

	ctx := context.Background()

	if len(args) > 0 {
		creator, err := a.registry.Get(args[0])
		if err != nil {
			return err
		}
		task := tasks.NewCheckCreatorTask(creator, a.lister, a.ledger, a.registry, a.bundler, a.cfg.VideosPerCheck)
		task.Start()
		return task.Execute(ctx)
	}

	for creator := range a.registry.All() {
		if !creator.Active {
			continue
		}
		task := tasks.NewCheckCreatorTask(creator, a.lister, a.ledger, a.registry, a.bundler, a.cfg.VideosPerCheck)
		task.Start()
		if err := task.Execute(ctx); err != nil {
			slog.Warn("Check failed", "creator", creator.Name, "error", err)
		}
	}
	return nil
}

func (a *application) recordApproval(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: record-approval <clip_id> <approved|rejected>")
	}

	return a.tracker.RecordDecision(args[0], args[1], nil)
}

func (a *application) postApproved() error {
	if a.publisher == nil {
		return fmt.Errorf("posting service not configured (set POSTER_URL)")
	}

	task := tasks.NewPostApprovedTask(a.manifests, a.publisher, a.cfg.MaxPostsPerRun)
	task.Start()
	return task.Execute(context.Background())
}
