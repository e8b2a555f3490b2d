// Package main is the CLI entry point for appagent.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/summerlab/appagent/internal/agent"
	"github.com/summerlab/appagent/internal/config"
	"github.com/summerlab/appagent/internal/domain"
	"github.com/summerlab/appagent/internal/infra"
	"github.com/summerlab/appagent/internal/launcher"
	"github.com/summerlab/appagent/internal/platform"
	"github.com/summerlab/appagent/internal/scanner"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "appagent",
	Short: "Application discovery and launch agent",
	Long: `appagent discovers installed applications across OS-native sources
(registry, desktop entries, app bundles, shortcuts, bin directories),
deduplicates them into a single searchable index, and launches or
terminates them on request. Run 'appagent serve' to expose the JSON
request API over HTTP.`,
	Version: Version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent HTTP server",
	Long: `Starts the agent: loads the cached application index (rescanning if
stale), starts the process monitor, and serves the JSON request API
until interrupted.`,
	RunE: runServe,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan all sources and rebuild the application index",
	RunE:  runScan,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered applications",
	Long:  `Lists the deduplicated application index, scanning first if the cache is empty or stale.`,
	RunE:  runList,
}

var launchCmd = &cobra.Command{
	Use:   "launch <app>",
	Short: "Launch an application by name",
	Long:  `Resolves the name against the application index (exact match first, then fuzzy) and launches it.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runLaunch,
}

var terminateCmd = &cobra.Command{
	Use:   "terminate <app>",
	Short: "Terminate a running application by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runTerminate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var (
	configPath   string
	forceRefresh bool
	launchArgs   []string
	elevated     bool
	workingDir   string
	jsonOutput   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	listCmd.Flags().BoolVar(&forceRefresh, "refresh", false, "Force a rescan before listing")
	launchCmd.Flags().StringArrayVar(&launchArgs, "arg", nil, "Argument to pass to the application (repeatable)")
	launchCmd.Flags().BoolVar(&elevated, "elevated", false, "Launch with elevated privileges")
	launchCmd.Flags().StringVar(&workingDir, "working-dir", "", "Working directory for the application")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(terminateCmd)
	rootCmd.AddCommand(versionCmd)
}

// components is the wired object graph shared by all commands.
type components struct {
	cfg    config.Config
	plat   *platform.Platform
	index  *scanner.Cache
	launch *launcher.Launcher
	store  domain.HistoryStore
	logger *zap.Logger
}

func buildComponents(logger *zap.Logger) (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	plat := platform.Detect()
	scanners := scanner.ForPlatform(plat, logger)
	index := scanner.NewCache(scanner.CacheConfig{
		TTL:       cfg.Scanner.TTL,
		MaxApps:   cfg.Scanner.MaxApps,
		CacheFile: cfg.Scanner.CacheFile,
	}, scanners, logger)

	if loaded, err := index.LoadFromDisk(); err != nil {
		logger.Warn("discarding unreadable cache file", zap.Error(err))
	} else if loaded {
		logger.Info("loaded application cache from disk",
			zap.Time("scanned_at", index.LastScan()))
	}

	var store domain.HistoryStore
	if cfg.History.Persist {
		store, err = infra.NewSQLiteHistoryStore(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
	}

	procs := infra.NewProcessManager()
	launch := launcher.New(index, plat, procs, launcher.StrategiesFor(plat), launcher.Config{
		CheckAlreadyRunning: cfg.Launcher.CheckAlreadyRunning,
		ValidateExecutable:  cfg.Launcher.ValidateExecutable,
		WaitForStartup:      cfg.Launcher.WaitForStartup,
		StartupGrace:        cfg.Launcher.StartupGrace,
		MaxRetries:          cfg.Launcher.MaxRetries,
		RetryBackoff:        cfg.Launcher.RetryBackoff,
		Display:             cfg.Launcher.Display,
		Debug:               cfg.Launcher.Debug,
	}, store, logger)

	return &components{
		cfg:    cfg,
		plat:   plat,
		index:  index,
		launch: launch,
		store:  store,
		logger: logger,
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := createLogger()
	defer func() { _ = logger.Sync() }()

	c, err := buildComponents(logger)
	if err != nil {
		return err
	}
	if c.store != nil {
		defer c.store.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.index.EnsureScanned(ctx, false); err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}

	var monitor *launcher.Monitor
	if c.cfg.Monitor.Enabled {
		monitor = launcher.NewMonitor(c.launch,
			c.cfg.Monitor.Interval, c.cfg.Monitor.ErrorInterval, logger)
		monitor.Start()
		defer monitor.Stop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := agent.NewMetrics(registry)
	srv := agent.NewServer(c.cfg.ListenAddr,
		agent.New(c.index, c.launch, metrics, logger), registry, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
		cancel()
	}()

	return srv.ListenAndServe()
}

func runScan(cmd *cobra.Command, args []string) error {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	c, err := buildComponents(logger)
	if err != nil {
		return err
	}

	if err := c.index.Refresh(context.Background()); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	stats := c.index.Stats()
	fmt.Printf("\n=== Scan Complete ===\n")
	fmt.Printf("Platform:        %s\n", c.plat.Family)
	fmt.Printf("Applications:    %d\n", stats.TotalScanned)
	fmt.Printf("Registry:        %d\n", stats.RegistryCount)
	fmt.Printf("Desktop entries: %d\n", stats.DesktopEntryCount)
	fmt.Printf("Bundles:         %d\n", stats.BundleCount)
	fmt.Printf("Bin dirs:        %d\n", stats.BinCount)
	fmt.Printf("Shortcuts:       %d\n", stats.ShortcutCount)
	fmt.Printf("Errors:          %d\n", stats.ErrorCount)
	fmt.Printf("Duration:        %.2fs\n", stats.ScanDuration)
	fmt.Println("=====================")
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	c, err := buildComponents(logger)
	if err != nil {
		return err
	}

	apps, err := c.index.Apps(context.Background(), forceRefresh)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	fmt.Printf("\n=== Applications (%d) ===\n", len(apps))
	for _, app := range apps {
		fmt.Printf("  %-40s %s [%s]\n", app.DisplayName, app.Path, app.Source)
	}
	fmt.Println("=========================")
	return nil
}

func runLaunch(cmd *cobra.Command, args []string) error {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	c, err := buildComponents(logger)
	if err != nil {
		return err
	}
	if c.store != nil {
		defer c.store.Close()
	}

	status := c.launch.Launch(context.Background(), args[0], launchArgs, domain.LaunchOptions{
		WorkingDir: workingDir,
		Elevated:   elevated,
	})

	fmt.Printf("Result:  %s\n", status.Result)
	fmt.Printf("Message: %s\n", status.Message)
	if status.ProcessID != 0 {
		fmt.Printf("PID:     %d\n", status.ProcessID)
	}
	if status.ErrorDetails != "" {
		fmt.Printf("Details: %s\n", status.ErrorDetails)
	}
	if status.Result != domain.LaunchSuccess && status.Result != domain.LaunchAlreadyRunning {
		return fmt.Errorf("launch failed: %s", status.Result)
	}
	return nil
}

func runTerminate(cmd *cobra.Command, args []string) error {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	c, err := buildComponents(logger)
	if err != nil {
		return err
	}

	status := c.launch.Terminate(context.Background(), args[0])
	fmt.Printf("Result:  %s\n", status.Result)
	fmt.Printf("Message: %s\n", status.Message)
	if status.Result != domain.LaunchSuccess {
		return fmt.Errorf("terminate failed: %s", status.Result)
	}
	return nil
}

func createLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		out, _ := json.Marshal(map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
		})
		fmt.Println(string(out))
	} else {
		fmt.Printf("appagent %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
