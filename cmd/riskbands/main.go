package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/rickgao/treasury-basis/internal/config"
	"github.com/rickgao/treasury-basis/internal/index"
	"github.com/rickgao/treasury-basis/internal/report"
	"github.com/rickgao/treasury-basis/internal/risk"
)

func main() {
	configPath := flag.String("config", "configs/hedger.yaml", "path to config file")
	file := flag.String("file", "", "historical futures file (default: from config)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	path := *file
	if path == "" {
		path = index.PathsFrom(cfg.Files).FuturesHistory
	}

	bars, err := index.LoadBars(path)
	if err != nil {
		logger.Error("failed to load history", "path", path, "error", err)
		os.Exit(1)
	}

	bands := risk.Bands(bars, cfg.Risk.BandZ)
	fmt.Printf("Bands from %s (%d bars, z=%.3f):\n", path, len(bars), cfg.Risk.BandZ)
	report.Bands(os.Stdout, bands)
}
