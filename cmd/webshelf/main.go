package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/webshelf/webshelf/internal/catalog"
	"github.com/webshelf/webshelf/internal/config"
	"github.com/webshelf/webshelf/internal/fetcher"
	"github.com/webshelf/webshelf/internal/images"
	"github.com/webshelf/webshelf/internal/pipeline"
	"github.com/webshelf/webshelf/internal/storage"
)

var (
	cfgFile string
	verbose bool

	collectionURL string
	maxPages      int
	delay         time.Duration
	skipExisting  bool
	dryRun        bool
	refreshImages bool
	resetCatalog  bool
	jsonPath      string
	exportJSON    bool
	importJSON    string
	render        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "webshelf",
		Short: "webshelf — storefront catalog ingestion",
		Long: `webshelf crawls a storefront collection, extracts product data from the
listing and detail pages, converts gallery images to webp, and reconciles
everything into the catalog database.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// importCmd creates the "import" subcommand, the ingestion pipeline itself.
func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Run the catalog ingestion pipeline",
		Long: `Crawl the collection's listing pages, scrape every product detail page,
and reconcile the records into the catalog. Alternatively replay a previous
run from a JSON export with --import-json.`,
		RunE: runImport,
	}

	cmd.Flags().StringVar(&collectionURL, "collection-url", "", "listing page to crawl")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum listing pages to fetch (0 = all)")
	cmd.Flags().DurationVar(&delay, "delay", 500*time.Millisecond, "pause after each request (default from config)")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip products already in the catalog instead of updating them")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "roll back every transaction and touch no image files")
	cmd.Flags().BoolVar(&refreshImages, "refresh-images", false, "replace stored images on updated products")
	cmd.Flags().BoolVar(&resetCatalog, "reset-catalog", false, "wipe all catalog tables before importing")
	cmd.Flags().StringVar(&jsonPath, "json-path", "", "path for --export-json output (default from config)")
	cmd.Flags().BoolVar(&exportJSON, "export-json", false, "export scraped records to JSON and skip the catalog phase")
	cmd.Flags().StringVar(&importJSON, "import-json", "", "reconcile records from a JSON export instead of scraping")
	cmd.Flags().BoolVar(&render, "render", false, "fetch pages through a headless browser")

	return cmd
}

// resolveDelay picks the request pacing: an explicit --delay flag wins,
// otherwise scrape.delay from the config file or environment applies.
func resolveDelay(cmd *cobra.Command, cfg *config.Config) time.Duration {
	if cmd.Flags().Changed("delay") {
		return delay
	}
	return cfg.Scrape.Delay
}

func runImport(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if importJSON == "" {
		if collectionURL == "" {
			return fmt.Errorf("either --collection-url or --import-json is required")
		}
		if err := config.ValidateURL(collectionURL); err != nil {
			return fmt.Errorf("invalid --collection-url: %w", err)
		}
	}
	if jsonPath == "" {
		jsonPath = cfg.Storage.JSONPath
	}
	pace := resolveDelay(cmd, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var fetch fetcher.Fetcher
	if render || cfg.Fetcher.Type == "browser" {
		fetch, err = fetcher.NewBrowserFetcher(cfg, logger)
		if err != nil {
			return fmt.Errorf("create browser fetcher: %w", err)
		}
	} else {
		fetch = fetcher.NewHTTPFetcher(cfg, logger)
	}
	defer fetch.Close()

	var store catalog.Store
	if cfg.Database.DSN != "" {
		store, err = catalog.NewPostgresStore(ctx, cfg.Database.DSN, logger)
		if err != nil {
			return fmt.Errorf("connect catalog: %w", err)
		}
	} else {
		if !dryRun && !exportJSON {
			return fmt.Errorf("no database.dsn configured; use --dry-run or --export-json")
		}
		store = catalog.NewMemoryStore()
	}
	defer store.Close()

	var archive storage.Archive
	if cfg.Storage.MongoURI != "" {
		archive, err = storage.NewMongoArchive(cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection, logger)
		if err != nil {
			logger.Warn("mongo archive unavailable", "error", err)
		} else {
			defer archive.Close()
		}
	}

	lib := images.NewLibrary(cfg.Images, logger)

	pipe := pipeline.New(cfg, fetch, store, lib, archive, pipeline.Options{
		CollectionURL: collectionURL,
		MaxPages:      maxPages,
		Delay:         pace,
		SkipExisting:  skipExisting,
		DryRun:        dryRun,
		RefreshImages: refreshImages,
		ResetCatalog:  resetCatalog,
		ExportJSON:    exportJSON,
		JSONPath:      jsonPath,
		ImportJSON:    importJSON,
	}, logger)

	start := time.Now()
	stats, err := pipe.Run(ctx)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	fmt.Printf("\ndone in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("   discovered: %d\n", stats.Discovered)
	fmt.Printf("   created:    %d\n", stats.Created)
	fmt.Printf("   updated:    %d\n", stats.Updated)
	fmt.Printf("   skipped:    %d\n", stats.Skipped)
	fmt.Printf("   failed:     %d\n", stats.Failed)
	return nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("webshelf %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Fetcher:\n")
			fmt.Printf("  Type:             %s\n", cfg.Fetcher.Type)
			fmt.Printf("  User Agent:       %s\n", cfg.Fetcher.UserAgent)
			fmt.Printf("  Request Timeout:  %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Max Body Size:    %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("  Max Retries:      %d\n", cfg.Fetcher.MaxRetries)
			fmt.Printf("  Retry Delay:      %s\n", cfg.Fetcher.RetryDelay)
			fmt.Printf("\nScrape:\n")
			fmt.Printf("  Delay:            %s\n", cfg.Scrape.Delay)
			fmt.Printf("  Product Prefix:   %s\n", cfg.Scrape.ProductPathPrefix)
			fmt.Printf("  Collection Path:  %s\n", cfg.Scrape.CollectionPath)
			fmt.Printf("  Image CDN Marker: %s\n", cfg.Scrape.ImageCDNMarker)
			fmt.Printf("\nImages:\n")
			fmt.Printf("  Directory:        %s\n", cfg.Images.Dir)
			fmt.Printf("  Max Size:         %d MB\n", cfg.Images.MaxSizeMB)
			fmt.Printf("  Webp Quality:     %d\n", cfg.Images.WebpQuality)
			fmt.Printf("\nDatabase:\n")
			fmt.Printf("  DSN configured:   %v\n", cfg.Database.DSN != "")
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  JSON Path:        %s\n", cfg.Storage.JSONPath)
			fmt.Printf("  Mongo configured: %v\n", cfg.Storage.MongoURI != "")
			return nil
		},
	}
}

// setupLogger creates a structured logger.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
