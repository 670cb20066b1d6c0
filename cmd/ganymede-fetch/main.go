package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ganymede/internal/config"
	"ganymede/internal/gather"
	"ganymede/internal/store"
	"ganymede/internal/util"
)

func main() {
	symbol := flag.String("symbol", "", "symbol to fetch (default from config)")
	timeframe := flag.String("timeframe", "", "bar timeframe: 1Min, 1Hour, 1Day (default from config)")
	startDate := flag.String("start", "", "first date to fetch, YYYY-MM-DD (default from config)")
	csvOut := flag.String("csv-out", "", "also export the fetched range to a CSV file")
	flag.Parse()

	var cfg *config.Config
	var err error
	if p := os.Getenv("GANYMEDE_CONFIG"); p != "" {
		cfg, err = config.Load(p)
	} else {
		cfg, err = config.LoadOrDefault("config/ganymede.yaml")
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if *symbol != "" {
		cfg.Fetch.Symbol = *symbol
	}
	if *timeframe != "" {
		cfg.Fetch.Timeframe = *timeframe
	}
	if *startDate != "" {
		cfg.Fetch.StartDate = *startDate
	}

	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		log.Fatal("Alpaca credentials missing: set alpaca.api_key/api_secret or APCA_API_KEY_ID/APCA_API_SECRET_KEY")
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)

	gatherer := gather.NewCryptoBarGatherer(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		pstore,
		cfg.Fetch.Symbol,
		cfg.Fetch.Timeframe,
		cfg.Fetch.StartDate,
		cfg.Fetch.RateLimitPerMin,
		cfg.Fetch.MaxAttempts,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting gatherer", "name", gatherer.Name())
	if err := gatherer.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("interrupted")
			os.Exit(130)
		}
		log.Fatalf("fetch failed: %v", err)
	}

	if *csvOut != "" {
		if err := exportCSV(ctx, cfg, pstore, *csvOut); err != nil {
			log.Fatalf("exporting csv: %v", err)
		}
	}
}

// exportCSV reads the fetched range back from the store and writes it in the
// layout the backtest CLI's -csv flag reads.
func exportCSV(ctx context.Context, cfg *config.Config, pstore *store.ParquetStore, path string) error {
	start, err := time.Parse("2006-01-02", cfg.Fetch.StartDate)
	if err != nil {
		return fmt.Errorf("parsing start date %q: %w", cfg.Fetch.StartDate, err)
	}

	bars, err := pstore.ReadBars(ctx, cfg.Fetch.Symbol, cfg.Fetch.Timeframe, start, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := store.WriteBarsCSV(path, bars); err != nil {
		return err
	}

	slog.Info("bars exported", "path", path, "bars", len(bars))
	return nil
}
