package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"districtpulse/internal/analytics"
	"districtpulse/internal/config"
	"districtpulse/internal/infrastructure"
	"districtpulse/internal/ingest"
	"districtpulse/internal/quality"
	"districtpulse/internal/rules"
	"districtpulse/internal/services"
	"districtpulse/internal/store"
	"districtpulse/internal/validation"
)

func main() {
	inDir := flag.String("in", "data/snapshots", "directory holding the raw snapshot files")
	format := flag.String("format", "csv", "snapshot format: csv or xlsx")
	state := flag.String("state", "", "only list districts of this state in the summary")
	flag.Parse()

	logger := infrastructure.MustInitializeLogger(config.LoggingConfig{
		Level:  "info",
		Output: "console",
	})

	ctx := context.Background()

	var source ingest.RowSource
	switch *format {
	case "xlsx":
		source = ingest.NewExcelSource(*inDir, logger)
	case "csv":
		source = ingest.NewCSVSource(*inDir, logger)
	default:
		slog.Error("unknown snapshot format", slog.String("format", *format))
		os.Exit(2)
	}

	monitor, err := quality.NewMonitor(logger)
	if err != nil {
		slog.Error("failed to create quality monitor", slog.String("error", err.Error()))
		os.Exit(1)
	}

	engine := services.NewEngineService(
		store.New(logger),
		validation.NewRowValidator(logger),
		rules.NewEngine(rules.DefaultConfig()),
		analytics.NewEngine(analytics.DefaultFlags(), nil),
		monitor,
		source,
		nil,
		logger,
	)

	metrics, err := engine.RebuildFromSource(ctx)
	if err != nil {
		slog.Error("ingestion failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("Ingestion cycle complete\n")
	fmt.Printf("  rows total:      %d\n", metrics.TotalRows)
	fmt.Printf("  rows valid:      %d\n", metrics.ValidRows)
	fmt.Printf("  rows invalid:    %d\n", metrics.InvalidRows)
	fmt.Printf("  completeness:    %.1f%%\n", metrics.CompletenessScore)
	if engine.ShouldAlert() {
		fmt.Printf("  ALERT: completeness below %.0f%%\n", quality.AlertThreshold)
	}

	districts := engine.ListDistricts(*state)
	fmt.Printf("  districts:       %d\n", len(districts))

	if clusters, err := engine.Clusters(); err == nil {
		centroids := analytics.DefaultCentroids()
		for i, c := range centroids {
			fmt.Printf("  cluster %-6s   %d districts\n", c.Name+":", len(clusters[i]))
		}
	}
}
