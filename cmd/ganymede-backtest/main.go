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
	"path/filepath"
	"syscall"
	"time"

	"ganymede/internal/backtest"
	"ganymede/internal/config"
	"ganymede/internal/domain"
	"ganymede/internal/store"
	"ganymede/internal/strategy"
	"ganymede/internal/util"
)

func main() {
	csvPath := flag.String("csv", "", "load bars from a CSV file instead of the Parquet store")
	startStr := flag.String("start", "", "first bar date (YYYY-MM-DD, Parquet store only)")
	endStr := flag.String("end", "", "last bar date (YYYY-MM-DD, Parquet store only)")
	noSave := flag.Bool("no-save", false, "skip persisting the run to SQLite and the results directory")
	flag.Parse()

	cfg := loadConfig()

	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	registry := strategy.NewRegistry()
	registry.Register(strategy.CrossOverName, strategy.CrossOver)

	rule, ok := registry.Get(cfg.Backtest.Rule)
	if !ok {
		log.Fatalf("unknown rule %q (available: %v)", cfg.Backtest.Rule, registry.List())
	}

	runner, err := backtest.NewRunner(backtest.Config{
		FastPeriod:          cfg.Backtest.FastPeriod,
		SlowPeriod:          cfg.Backtest.SlowPeriod,
		InitialCash:         cfg.Backtest.InitialCash,
		CommissionRate:      cfg.Backtest.CommissionRate,
		AnnualizationFactor: cfg.Backtest.AnnualizationFactor,
	}, rule)
	if err != nil {
		log.Fatalf("invalid backtest parameters: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bars, err := loadBars(ctx, cfg, *csvPath, *startStr, *endStr)
	if err != nil {
		log.Fatalf("loading bars: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("no bars for %s, fetch data first or pass -csv", cfg.Backtest.Symbol)
	}

	slog.Info("running backtest",
		"symbol", cfg.Backtest.Symbol,
		"rule", cfg.Backtest.Rule,
		"fast", cfg.Backtest.FastPeriod,
		"slow", cfg.Backtest.SlowPeriod,
		"bars", len(bars),
	)

	result, err := runner.Run(ctx, bars)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		log.Fatalf("backtest failed: %v", err)
	}

	printSummary(cfg, result, len(bars))

	if !*noSave {
		if err := persist(ctx, cfg, bars, result); err != nil {
			log.Fatalf("persisting results: %v", err)
		}
	}
}

// loadConfig reads the config file named by GANYMEDE_CONFIG or the default
// path. A missing default path is not an error: built-in defaults plus
// environment overrides apply.
func loadConfig() *config.Config {
	if p := os.Getenv("GANYMEDE_CONFIG"); p != "" {
		cfg, err := config.Load(p)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		return cfg
	}

	cfg, err := config.LoadOrDefault("config/ganymede.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func loadBars(ctx context.Context, cfg *config.Config, csvPath, startStr, endStr string) ([]domain.Bar, error) {
	if csvPath != "" {
		return store.LoadBarsCSV(csvPath, cfg.Backtest.Symbol)
	}

	start := time.Time{}
	end := time.Now().UTC()
	if startStr != "" {
		t, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return nil, fmt.Errorf("bad -start: %w", err)
		}
		start = t
	}
	if endStr != "" {
		t, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return nil, fmt.Errorf("bad -end: %w", err)
		}
		end = t
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	return pstore.ReadBars(ctx, cfg.Backtest.Symbol, cfg.Fetch.Timeframe, start, end)
}

func printSummary(cfg *config.Config, result *backtest.Result, barCount int) {
	p := result.Performance
	fmt.Printf("\n%s %s (fast %d / slow %d, %d bars)\n",
		cfg.Backtest.Symbol, cfg.Backtest.Rule,
		cfg.Backtest.FastPeriod, cfg.Backtest.SlowPeriod, barCount)
	fmt.Printf("  total return        %9.2f%%\n", p.TotalReturn*100)
	fmt.Printf("  buy & hold return   %9.2f%%\n", result.BuyAndHoldReturn*100)
	fmt.Printf("  sharpe ratio        %9.2f\n", p.SharpeRatio)
	fmt.Printf("  max drawdown        %9.2f%%\n", p.MaxDrawdown*100)
	fmt.Printf("  drawdown duration   %6d bars\n", p.MaxDrawdownDuration)
	fmt.Printf("  final equity        %12.2f\n", p.FinalEquity)
	fmt.Printf("  trades              %6d (%d won / %d lost, win rate %.1f%%)\n",
		p.TotalTrades, p.WinningTrades, p.LosingTrades, p.WinRate*100)
}

// persist writes the result CSVs to the results directory and records the
// run with its trade log in SQLite.
func persist(ctx context.Context, cfg *config.Config, bars []domain.Bar, result *backtest.Result) error {
	stamp := time.Now().UTC().Format("20060102-150405")
	dir := filepath.Join(cfg.Storage.ResultsDir, stamp)

	if err := store.WriteEquityCSV(filepath.Join(dir, "equity.csv"), result.Equity); err != nil {
		return fmt.Errorf("writing equity curve: %w", err)
	}
	if err := store.WriteTradesCSV(filepath.Join(dir, "trades.csv"), result.Trades); err != nil {
		return fmt.Errorf("writing trade log: %w", err)
	}
	if err := store.WriteSignalsCSV(filepath.Join(dir, "signals.csv"), bars, result.FastSMA, result.SlowSMA, result.Signals); err != nil {
		return fmt.Errorf("writing signal series: %w", err)
	}

	sdb, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("opening run database: %w", err)
	}
	defer sdb.Close()

	p := result.Performance
	runID, err := sdb.SaveRun(ctx, &store.Run{
		Symbol:              cfg.Backtest.Symbol,
		Rule:                cfg.Backtest.Rule,
		FastPeriod:          cfg.Backtest.FastPeriod,
		SlowPeriod:          cfg.Backtest.SlowPeriod,
		InitialCash:         cfg.Backtest.InitialCash,
		CommissionRate:      cfg.Backtest.CommissionRate,
		TotalReturn:         p.TotalReturn,
		SharpeRatio:         p.SharpeRatio,
		MaxDrawdown:         p.MaxDrawdown,
		MaxDrawdownDuration: p.MaxDrawdownDuration,
		FinalEquity:         p.FinalEquity,
		TotalTrades:         p.TotalTrades,
		WinningTrades:       p.WinningTrades,
		LosingTrades:        p.LosingTrades,
		WinRate:             p.WinRate,
		BuyAndHoldReturn:    result.BuyAndHoldReturn,
	})
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	if err := sdb.SaveTrades(ctx, runID, result.Trades); err != nil {
		return fmt.Errorf("saving trades: %w", err)
	}

	slog.Info("results saved", "runID", runID, "dir", dir)
	return nil
}
