package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdclab/brcaloader/internal/adapters/catalog"
	"github.com/gdclab/brcaloader/internal/adapters/gdc"
	"github.com/gdclab/brcaloader/internal/app"
	"github.com/gdclab/brcaloader/internal/config"
	"github.com/gdclab/brcaloader/pkg/logger"
	"github.com/gdclab/brcaloader/pkg/metrics"
)

// Metrics listener timeouts.
const (
	metricsReadTimeout       = 10 * time.Second
	metricsReadHeaderTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("brcaloader: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Initialize logging
	if err := logger.Init(); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("sync logger: " + err.Error() + "\n")
		}
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Optional metrics listener for long fetch runs.
	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr)
	}

	// Optional fetch catalog; failure to open is tolerated.
	var cat *catalog.Catalog
	if cfg.CatalogPath != "" {
		cat, err = catalog.Open(cfg.CatalogPath)
		if err != nil {
			log.Warn(ctx, "fetch catalog unavailable", logger.Error(err))
			cat = nil
		} else {
			defer func() {
				if err := cat.Close(); err != nil {
					log.Warn(ctx, "close catalog", logger.Error(err))
				}
			}()
		}
	}

	client := gdc.New(
		gdc.WithBaseURL(cfg.BaseURL),
		gdc.WithProjectID(cfg.ProjectID),
		gdc.WithDataType(cfg.DataType),
		gdc.WithDataDir(cfg.DataDir),
		gdc.WithPageSize(cfg.PageSize),
		gdc.WithMaxRetries(cfg.MaxRetries),
		gdc.WithQueryTimeout(cfg.QueryTimeout),
		gdc.WithDownloadTimeout(cfg.DownloadTimeout),
		gdc.WithLogger(log),
	)

	loader := app.New(
		app.WithClient(client),
		app.WithCatalog(cat),
		app.WithDataDir(cfg.DataDir),
		app.WithAutoDownload(cfg.AutoDownloadPAM50),
		app.WithLogger(log),
	)

	log.Info(ctx, "loading TCGA-BRCA data from GDC API",
		logger.String("project", cfg.ProjectID),
		logger.String("data_dir", cfg.DataDir))

	summary, err := loader.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	printSummary(summary, cfg.DataDir)
	if cat != nil {
		printHistory(cat)
	}
	return nil
}

// serveMetrics exposes the Prometheus registry until the context ends.
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       metricsReadTimeout,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		os.Stderr.WriteString("metrics server failed: " + err.Error() + "\n")
	}
}

// printHistory reports what earlier runs already fetched, so repeat
// invocations can see what exists before re-downloading anything.
func printHistory(cat *catalog.Catalog) {
	runs, err := cat.RecentRuns(5)
	if err != nil || len(runs) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("Recent fetch history:")
	for _, r := range runs {
		fmt.Printf("  %s  %-16s %-6s %d rows\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.Resource, r.Status, r.Rows)
	}

	if a, err := cat.Artifact(gdc.SubtypeFileName); err == nil && a != nil {
		fmt.Printf("  supplementary subtype file on disk: %s (%d bytes)\n", a.Path, a.SizeBytes)
	}
}

// printSummary writes the human-readable run report to stdout.
func printSummary(s *app.Summary, dataDir string) {
	fmt.Println("============================================================")
	fmt.Println("Data Summary")
	fmt.Println("============================================================")
	fmt.Printf("File manifest:  %d files\n", s.Files)
	fmt.Printf("Clinical data:  %d cases\n", s.Cases)

	if s.Subtypes > 0 {
		fmt.Printf("PAM50 subtypes: %d rows (source: %s)\n", s.Subtypes, s.SubtypeSource)
	} else {
		fmt.Println("PAM50 subtypes: not found")
		fmt.Println()
		fmt.Println("PAM50 subtypes are typically available from:")
		fmt.Println("  1. Supplementary files from the TCGA BRCA 2012 publication")
		fmt.Println("     (BRCA.547.PAM50.SigClust.Subtypes.txt)")
		fmt.Println("  2. The TCGAbiolinks R package: TCGAquery_subtype(tumor='BRCA')")
		fmt.Println("  3. PanCancerAtlas data for more complete assignments")
	}

	fmt.Println()
	fmt.Println("Outputs:")
	for _, out := range s.Outputs {
		fmt.Println("  " + out)
	}

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  1. Review the data in %s\n", dataDir)
	fmt.Println("  2. Download expression files listed in the manifest")
	fmt.Println("  3. Parse expression data and merge with clinical annotations")
	fmt.Println("  4. Use PAM50 subtypes for classification modeling")
	fmt.Println("============================================================")
}
