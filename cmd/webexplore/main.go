package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/v0xg/webexplore/internal/ai"
	"github.com/v0xg/webexplore/internal/config"
	"github.com/v0xg/webexplore/internal/crawler"
	"github.com/v0xg/webexplore/internal/executor"
	"github.com/v0xg/webexplore/internal/explorer"
	"github.com/v0xg/webexplore/internal/guardrail"
	"github.com/v0xg/webexplore/internal/heuristic"
	"github.com/v0xg/webexplore/internal/logging"
	"github.com/v0xg/webexplore/internal/metrics"
	"github.com/v0xg/webexplore/internal/recording"
)

var (
	configPath  string
	provider    string
	model       string
	baseURL     string
	maxClicks   int
	target      int
	headless    bool
	stealthMode bool
	profile     string
	pathPrefix  string
	excludes    []string
	recordPath  string
	reportPath  string
	metricsAddr string
	verbose     bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "webexplore <url>",
		Short: "Explore a web application autonomously",
		Long: `webexplore opens a browser at the given URL and keeps clicking through the
application, asking an AI model which element to try next and falling back to
a built-in heuristic when the model is slow, unreachable or wrong.

Example:
  webexplore https://myapp.com --max-clicks 50 --target 20 --report session.json`,
		Args:         cobra.ExactArgs(1),
		RunE:         run,
		SilenceUsage: true,
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&provider, "provider", "", "AI provider: claude, openai, grok, ollama (default: detected from env, else ollama)")
	flags.StringVar(&model, "model", "", "Specific model override")
	flags.StringVar(&baseURL, "base-url", "", "Override the provider endpoint (OpenAI-compatible servers, proxies)")
	flags.IntVar(&maxClicks, "max-clicks", 0, "Maximum number of actions (default from config: 30)")
	flags.IntVar(&target, "target", 0, "Stop after this many new pages (default from config: 10)")
	flags.BoolVar(&headless, "headless", true, "Run the browser without a window")
	flags.BoolVar(&stealthMode, "stealth", false, "Hide automation fingerprints from the site")
	flags.StringVar(&profile, "profile", "", "Chrome/Chromium profile directory for authenticated sessions (close browser first)")
	flags.StringVar(&pathPrefix, "stay-on-path", "", "Only follow links under this path prefix")
	flags.StringSliceVar(&excludes, "exclude", nil, "Glob patterns of paths never to visit, e.g. /logout*")
	flags.StringVar(&recordPath, "record", "", "Save the session as a GIF")
	flags.StringVar(&reportPath, "report", "", "Write the session summary as JSON")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	startURL := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(cfg.Log)
	m := metrics.New()
	if metricsAddr != "" {
		serveMetrics(metricsAddr, m, logger)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor, err := guardrail.NewExtractor(guardrail.Config{
		StartURL:         startURL,
		StayOnDomain:     cfg.StayOnDomain,
		StayOnPathPrefix: cfg.StayOnPathPrefix,
		IncludeInvisible: cfg.IncludeInvisible,
		MaxElements:      cfg.MaxElements,
		IgnoredTags:      cfg.IgnoredTags,
		ExcludePatterns:  cfg.ExcludePatterns,
	}, logger, m)
	if err != nil {
		return err
	}

	decider, source := newDecider(cfg, logger, m)

	fmt.Printf("→ Opening %s... ", startURL)
	browser, err := crawler.Launch(ctx, startURL, crawler.Options{
		Width:         cfg.Browser.Width,
		Height:        cfg.Browser.Height,
		Headless:      cfg.Browser.Headless,
		Stealth:       cfg.Browser.Stealth,
		ProfileDir:    cfg.Browser.ProfileDir,
		Timeout:       cfg.Browser.ActionTimeout,
		SettleTimeout: cfg.Browser.SettleTimeout,
	}, logger)
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("browser launch failed: %w", err)
	}
	defer browser.Close()
	fmt.Println("done")

	exec := executor.New(browser, executor.Options{Timeout: cfg.Browser.ActionTimeout}, logger)
	driver := executor.NewBrowserDriver(browser, exec)

	x := explorer.New(explorer.Config{
		StartURL:               startURL,
		MaxClicks:              cfg.MaxClicks,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		TargetNavigations:      cfg.TargetNavigations,
		HistorySize:            cfg.RecentInteractionHistorySize,
	}, driver, extractor, decider, heuristic.NewSelector(rand.New(rand.NewSource(time.Now().UnixNano()))), logger, m)

	var recorder *recording.Recorder
	if recordPath != "" {
		recorder = recording.New(recording.Options{MaxWidth: 800})
		if img, err := driver.Screenshot(ctx); err == nil {
			recorder.Add(img)
		}
	}

	x.OnStep = func(ctx context.Context, rec explorer.StepRecord) {
		printStep(rec, cfg.MaxClicks)
		if recorder == nil {
			return
		}
		img, err := driver.Screenshot(ctx)
		if err != nil {
			logger.Debug("frame capture failed", "step", rec.Step, "error", err)
			return
		}
		if rec.Success && (rec.X != 0 || rec.Y != 0) {
			recorder.AddClick(img, rec.X, rec.Y)
		} else {
			recorder.Add(img)
		}
	}

	fmt.Printf("→ Exploring via %s (max %d actions, target %d pages)\n", source, cfg.MaxClicks, cfg.TargetNavigations)
	summary := x.Run(ctx)
	printSummary(summary)

	if reportPath != "" {
		if err := summary.WriteReport(reportPath); err != nil {
			return err
		}
		fmt.Printf("✓ Report saved to %s\n", reportPath)
	}

	if recorder != nil {
		fmt.Printf("→ Generating GIF (%d frames)... ", recorder.Len())
		size, err := recorder.Write(recordPath)
		if err != nil {
			fmt.Println("failed")
			return fmt.Errorf("GIF generation failed: %w", err)
		}
		fmt.Println("done")
		fmt.Printf("✓ Saved to %s (%.1f MB)\n", recordPath, float64(size)/(1024*1024))
	}

	if verbose {
		printCounters(m)
	}

	if !summary.Success {
		return fmt.Errorf("exploration ended: %s", summary.Reason)
	}
	return nil
}

// applyFlags layers explicitly set command-line flags over the file config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Provider.Model = model
	}
	if flags.Changed("base-url") {
		cfg.Provider.BaseURL = baseURL
	}
	if flags.Changed("max-clicks") {
		cfg.MaxClicks = maxClicks
	}
	if flags.Changed("target") {
		cfg.TargetNavigations = target
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if flags.Changed("stealth") {
		cfg.Browser.Stealth = stealthMode
	}
	if flags.Changed("profile") {
		cfg.Browser.ProfileDir = profile
	}
	if flags.Changed("stay-on-path") {
		cfg.StayOnPathPrefix = pathPrefix
	}
	if flags.Changed("exclude") {
		cfg.ExcludePatterns = append(cfg.ExcludePatterns, excludes...)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
}

// newDecider builds the recommender-backed engine. A provider that cannot be
// constructed leaves the session on the heuristic alone.
func newDecider(cfg config.Config, logger *log.Logger, m *metrics.Metrics) (explorer.Decider, string) {
	name := ai.ResolveProvider(provider, cfg.Provider.Name, os.Getenv)
	rec, err := ai.NewRecommender(ai.Settings{
		Provider: name,
		Model:    cfg.Provider.Model,
		BaseURL:  cfg.Provider.BaseURL,
		APIKey:   ai.APIKey(name, os.Getenv),
	})
	if err != nil {
		logger.Warn("recommender disabled, using heuristic only", "provider", name, "error", err)
		return nil, "heuristic"
	}

	engine := ai.NewEngine(rec, ai.EngineOptions{
		MaxElements: cfg.MaxElementsToShowRecommender,
		MaxRecent:   cfg.RecentInteractionHistorySize,
		Timeout:     cfg.Provider.Timeout,
		Temperature: cfg.Provider.Temperature,
		MaxTokens:   cfg.Provider.MaxTokens,
	}, logger, m)
	return engine, name
}

func serveMetrics(addr string, m *metrics.Metrics, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
}

func printStep(rec explorer.StepRecord, maxClicks int) {
	fmt.Printf("  [%d/%d] %s %q (%s)", rec.Step, maxClicks, rec.Kind, rec.Label, rec.Source)
	switch {
	case !rec.Success:
		fmt.Printf(" ✗ (%s)\n", rec.Error)
	case rec.NewPage:
		fmt.Printf(" ✓ → %s\n", rec.ResultingURL)
	default:
		fmt.Println(" ✓")
	}
}

func printSummary(s *explorer.Summary) {
	mark := "✓"
	if !s.Success {
		mark = "✗"
	}
	fmt.Printf("%s Finished: %s\n", mark, s.Reason)
	if s.Target > 0 {
		fmt.Printf("  pages: %d/%d\n", s.Navigations, s.Target)
	} else {
		fmt.Printf("  pages: %d\n", s.Navigations)
	}
	fmt.Printf("  actions: %d, duration: %s, session: %s\n", s.TotalClicks, s.Duration.Round(time.Second), s.SessionID)
}

func printCounters(m *metrics.Metrics) {
	counters, err := m.Counters()
	if err != nil || len(counters) == 0 {
		return
	}
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s %g\n", k, counters[k])
	}
}
