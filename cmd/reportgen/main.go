// Command reportgen runs report pipelines from the command line and writes
// the rendered artifacts to the reports directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"insightcli/internal/config"
	"insightcli/internal/infrastructure"
	"insightcli/internal/services"
)

func main() {
	reportID := flag.String("report", "all", "report to run: stocks, loans, insurance or all")
	outputDir := flag.String("out", "", "output directory (defaults to the configured reports dir)")
	seed := flag.Int64("seed", 0, "override the pipeline seed (0 keeps the configured seed)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.Paths.ReportsDir = *outputDir
	}
	if *seed != 0 {
		cfg.Pipeline.Seed = *seed
	}
	if err := cfg.EnsureDirectories(); err != nil {
		slog.Error("Failed to create directories", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := services.NewReportService(cfg, logger)

	if *reportID == "all" {
		if err := svc.RunAll(ctx); err != nil {
			logger.Error("Report generation failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		snap, err := svc.RunSync(ctx, *reportID)
		if err != nil {
			logger.Error("Report generation failed",
				slog.String("report", *reportID),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		for _, step := range snap.Steps {
			fmt.Printf("  %-8s %-28s %s\n", step.Status, step.Name, step.Duration)
		}
	}

	fmt.Printf("Reports written to %s\n", cfg.Paths.ReportsDir)
}
