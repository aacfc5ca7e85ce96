package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/eshaffer321/doordash-export/internal/application/pipeline"
	"github.com/eshaffer321/doordash-export/internal/cache"
	"github.com/eshaffer321/doordash-export/internal/doordash"
	"github.com/eshaffer321/doordash-export/internal/infrastructure/config"
	"github.com/eshaffer321/doordash-export/internal/infrastructure/logging"
	"github.com/eshaffer321/doordash-export/internal/infrastructure/storage"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file path")
		cacheDir   = flag.String("cache-dir", "", "Directory for cached API responses")
		outPath    = flag.String("out", "", "Itemized CSV output path")
		pivotPath  = flag.String("pivot-out", "", "Pivoted CSV output path")
		noDB       = flag.Bool("no-db", false, "Skip recording the run in the ledger database")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.BoolVar(verbose, "v", false, "Enable verbose logging (shorthand)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s [flags] <sessionid>\n\n"+
				"sessionid is your sessionid cookie value, or the full cookie string\n"+
				"from the browser DevTools network tab.\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := loadConfig(*configFile)
	if flag.NArg() > 0 {
		cfg.DoorDash.SessionID = flag.Arg(0)
	}
	if *cacheDir != "" {
		cfg.Cache.Directory = *cacheDir
	}
	if *outPath != "" {
		cfg.Export.ItemizedPath = *outPath
	}
	if *pivotPath != "" {
		cfg.Export.PivotPath = *pivotPath
	}
	if *verbose {
		cfg.Observability.Logging.Level = "debug"
	}

	logger := logging.NewLogger(cfg.Observability.Logging)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		flag.Usage()
		os.Exit(2)
	}

	client, err := doordash.NewClient(cfg.DoorDash.SessionID, logger)
	if err != nil {
		logger.Error("failed to create client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	client.SetBaseURL(cfg.DoorDash.BaseURL)

	store, err := cache.NewStore(cfg.Cache.Directory, logger)
	if err != nil {
		logger.Error("failed to create response cache", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fetcher := doordash.NewFetcher(client, store, logger)
	fetcher.PageSize = cfg.DoorDash.PageSize
	fetcher.Pause = cfg.DoorDash.PauseDuration()

	var ledger *storage.Storage
	if !*noDB {
		ledger, err = storage.NewStorage(cfg.Storage.DatabasePath)
		if err != nil {
			logger.Error("failed to initialize ledger database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer ledger.Close()
	}

	orchestrator := pipeline.NewOrchestrator(fetcher, ledger, logger)
	result, err := orchestrator.Run(context.Background(), pipeline.Options{
		ItemizedPath: cfg.Export.ItemizedPath,
		PivotPath:    cfg.Export.PivotPath,
	})
	if err != nil {
		logger.Error("export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("\nExport complete: orders=%d rows=%d warnings=%d\n",
		result.Orders, result.Rows, result.Warnings)
	fmt.Printf("  itemized: %s\n  pivoted:  %s\n", result.ItemizedPath, result.PivotPath)
}

func loadConfig(path string) *config.Config {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", path, err)
			os.Exit(2)
		}
		return cfg
	}
	return config.LoadOrEnv()
}
