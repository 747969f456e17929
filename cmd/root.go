package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"browsebench/internal/banner"
	"browsebench/internal/cli"
	"browsebench/internal/dummy"
	"browsebench/internal/runner"
	"browsebench/internal/settings"
	"browsebench/internal/storage"
	"browsebench/internal/tui/app"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	cfgFile string

	// CLI Flags
	urls          []string
	runsPerURL    int
	browserName   string
	headless      bool
	timeoutSec    int
	waitStrategy  string
	antiDetection bool
	dnsBenchmark  bool
	exportFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "browsebench",
	Short: "BrowseBench - Browser Page Load Benchmark",
	Long: `
BrowseBench measures real page load times by driving a browser through
WebDriver and repeatedly loading your URLs.

It supports two main modes:
1. TUI Mode (Default): Interactive Terminal UI
2. CLI Mode (Headless): Run with flags for CI/CD usage`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := setupLogger()

		// If URLs are provided on the command line, run headless
		if cmd.Flags().Changed("url") {
			return runHeadless(log)
		}

		return runTUI(log)
	},
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default is ./settings.json)")

	rootCmd.Flags().StringSliceVarP(&urls, "url", "u", nil, "URL to test, repeatable (enables CLI mode)")
	rootCmd.Flags().IntVarP(&runsPerURL, "runs", "r", 3, "Runs per URL")
	rootCmd.Flags().StringVarP(&browserName, "browser", "b", "Chrome", "Browser: Chrome or Firefox")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "Run the browser headless")
	rootCmd.Flags().IntVarP(&timeoutSec, "timeout", "t", 60, "Page load timeout in seconds")
	rootCmd.Flags().StringVarP(&waitStrategy, "wait", "w", "Combined", "Wait strategy: ReadyState, LoadEventEnd or Combined")
	rootCmd.Flags().BoolVar(&antiDetection, "anti-detection", true, "Apply automation-masking browser options")
	rootCmd.Flags().BoolVar(&dnsBenchmark, "dns", false, "Run the DNS latency benchmark first")
	rootCmd.Flags().StringVarP(&exportFormat, "format", "f", "CSV", "Report format: CSV or JSON")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("json")
		viper.SetConfigName("settings")
	}
	viper.SetEnvPrefix("BROWSEBENCH")
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

// setupLogger writes structured logs to stderr and mirrors them into
// browsebench.log so TUI sessions keep a trail the alt screen would swallow.
func setupLogger() *slog.Logger {
	out := io.Writer(os.Stderr)
	if f, err := os.OpenFile("browsebench.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
		out = io.MultiWriter(os.Stderr, f)
	}
	log := slog.New(slog.NewTextHandler(out, nil))
	slog.SetDefault(log)
	return log
}

func settingsPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return settings.DefaultFile
}

// --- Runners ---

func runTUI(log *slog.Logger) error {
	path := settingsPath()
	s := settings.Load(path, log)

	store, err := storage.NewStore()
	if err != nil {
		log.Warn("history store unavailable", "err", err)
	}
	if store != nil {
		defer store.Close()
	}

	m := app.NewModel(s, path, store, log)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running BrowseBench: %w", err)
	}
	return nil
}

func runHeadless(log *slog.Logger) error {
	cfg, err := configFromFlags()
	if err != nil {
		return err
	}

	s := settings.Defaults()
	s.Config = cfg
	s.ExportFormat = strings.ToUpper(exportFormat)
	if s.ExportFormat != "JSON" {
		s.ExportFormat = "CSV"
	}

	cli.Start(s, log)
	return nil
}

func configFromFlags() (runner.Config, error) {
	cfg := runner.Config{
		URLs:                 normalizeURLs(urls),
		RunsPerURL:           runsPerURL,
		Headless:             headless,
		TimeoutSeconds:       timeoutSec,
		AntiDetectionEnabled: antiDetection,
		RunDNSBenchmark:      dnsBenchmark,
	}
	if len(cfg.URLs) == 0 {
		return cfg, fmt.Errorf("no valid URLs given")
	}
	if cfg.RunsPerURL < 1 {
		cfg.RunsPerURL = 1
	}
	if cfg.TimeoutSeconds < 10 {
		cfg.TimeoutSeconds = 10
	}

	switch strings.ToLower(browserName) {
	case "chrome":
		cfg.Browser = runner.BrowserChrome
	case "firefox":
		cfg.Browser = runner.BrowserFirefox
	default:
		return cfg, fmt.Errorf("unknown browser %q (want Chrome or Firefox)", browserName)
	}

	switch strings.ToLower(waitStrategy) {
	case "readystate":
		cfg.WaitStrategy = runner.WaitReadyState
	case "loadeventend":
		cfg.WaitStrategy = runner.WaitLoadEventEnd
	case "combined":
		cfg.WaitStrategy = runner.WaitCombined
	default:
		return cfg, fmt.Errorf("unknown wait strategy %q (want ReadyState, LoadEventEnd or Combined)", waitStrategy)
	}

	return cfg, nil
}

// normalizeURLs drops empty entries and prefixes bare hosts with https://.
func normalizeURLs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, u := range in {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			u = "https://" + u
		}
		out = append(out, u)
	}
	return out
}

// --- Serve Subcommand ---
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local target server with pages of varying weight",
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		dummy.Start(dummy.ServerConfig{Port: port})
		select {}
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
}
