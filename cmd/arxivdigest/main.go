package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"arxivdigest/internal/cache"
	"arxivdigest/internal/config"
	"arxivdigest/internal/logging"
	"arxivdigest/internal/pipeline"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "arxivdigest",
	Short:   "Daily arXiv paper summaries",
	Long:    "arxivdigest searches arXiv by keyword, summarizes new papers with an LLM, and publishes them as a static site.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if verbose {
			cfg.Logging.Level = "DEBUG"
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("arxivdigest", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/arxivdigest/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure search defaults, the LLM provider, and the prompt.")
		return nil
	},
}

// --- run command ---

var (
	force    bool
	daysBack int
	outDir   string
)

var runCmd = &cobra.Command{
	Use:   "run [keywords...]",
	Short: "Run the full pipeline: search -> download -> extract -> summarize -> render",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, logPath, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		pipe, err := pipeline.New(cfg, log)
		if err != nil {
			return err
		}

		opts := pipeline.RunOptions{
			Keywords:  args,
			OutputDir: resolveOutDir(),
			Force:     force,
		}
		if daysBack > 0 {
			opts.Since = time.Now().UTC().AddDate(0, 0, -daysBack)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := pipe.Run(ctx, opts)
		if err != nil {
			return err
		}

		source := "arXiv"
		if result.FromCache {
			source = "cache"
		}
		fmt.Printf("\nRun complete for [%s]:\n", strings.Join(args, ", "))
		fmt.Printf("  Found: %d (from %s)\n", result.Found, source)
		fmt.Printf("  Summarized: %d\n", len(result.Processed))
		fmt.Printf("  Skipped: %d\n", result.Skipped)
		fmt.Printf("  Failed: %d\n", result.Failed)
		fmt.Printf("\nSite written to %s\n", opts.OutputDir)
		fmt.Printf("Log: %s\n", logPath)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&force, "force", false, "Bypass caches and reprocess already summarized papers")
	runCmd.Flags().IntVar(&daysBack, "days-back", 0, "Override lookback window (days)")
	runCmd.Flags().StringVarP(&outDir, "out", "o", "", "Site output directory (default <data-dir>/site)")
}

// --- render command ---

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Regenerate the site from existing summaries without fetching anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, _, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		pipe, err := pipeline.New(cfg, log)
		if err != nil {
			return err
		}

		dir := resolveOutDir()
		if err := pipe.Render(dir); err != nil {
			return err
		}
		fmt.Printf("Site written to %s\n", dir)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&outDir, "out", "o", "", "Site output directory (default <data-dir>/site)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generated site locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := resolveOutDir()
		if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
			return fmt.Errorf("no site found in %s; run 'arxivdigest run' or 'arxivdigest render' first", dir)
		}

		fmt.Printf("Serving %s at http://localhost:%d\n", dir, servePort)
		fmt.Println("Press Ctrl+C to stop")
		return http.ListenAndServe(fmt.Sprintf(":%d", servePort), http.FileServer(http.Dir(dir)))
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to serve on")
	serveCmd.Flags().StringVarP(&outDir, "out", "o", "", "Site directory to serve (default <data-dir>/site)")
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show summary, cache, and download counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		dirs := cfg.GetDirs()

		summaries, _ := filepath.Glob(filepath.Join(dirs.Summary, "*_summary.json"))
		downloads, _ := filepath.Glob(filepath.Join(dirs.Download, "*.pdf"))

		store := cache.NewStore(dirs.Cache, logging.NewNop())
		searches := store.LoadSearch()
		papers := store.LoadPapers()

		fmt.Printf("Data dir: %s\n\n", cfg.GetDataDir())
		fmt.Printf("Summaries: %d\n", len(summaries))
		fmt.Printf("Downloaded PDFs: %d\n", len(downloads))
		fmt.Printf("Cached searches: %d\n", len(searches))
		fmt.Printf("Cached papers: %d\n", len(papers))
		return nil
	},
}

func newLogger() (*zap.Logger, string, error) {
	dirs := cfg.GetDirs()
	if err := dirs.Ensure(); err != nil {
		return nil, "", err
	}
	return logging.New(dirs.Logs, cfg.Logging.Level)
}

func resolveOutDir() string {
	if outDir != "" {
		return outDir
	}
	return filepath.Join(cfg.GetDataDir(), "site")
}
