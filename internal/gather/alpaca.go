package gather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"ganymede/internal/domain"
	"ganymede/internal/store"
	"ganymede/internal/util"
)

var _ Gatherer = (*CryptoBarGatherer)(nil)

// CryptoBarGatherer fetches historical crypto OHLCV bars from the Alpaca
// market-data API and writes them to the bar store, one calendar year at a
// time.
type CryptoBarGatherer struct {
	client      *marketdata.Client
	store       store.BarStore
	symbol      string
	timeframe   string
	startDate   string
	maxAttempts int
	limiter     *util.RateLimiter
	log         *slog.Logger
}

// NewCryptoBarGatherer creates a CryptoBarGatherer configured with the given
// Alpaca credentials, target store, and fetch parameters.
func NewCryptoBarGatherer(apiKey, apiSecret, dataURL string, s store.BarStore, symbol, timeframe, startDate string, rateLimitPerMin, maxAttempts int) *CryptoBarGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &CryptoBarGatherer{
		client:      marketdata.NewClient(opts),
		store:       s,
		symbol:      symbol,
		timeframe:   timeframe,
		startDate:   startDate,
		maxAttempts: maxAttempts,
		limiter:     util.NewRateLimiter(rateLimitPerMin),
		log:         slog.Default().With("gatherer", "crypto-bars"),
	}
}

// Name returns the gatherer identifier.
func (g *CryptoBarGatherer) Name() string { return "crypto-bars" }

// Run fetches bars from the configured start date up to now and persists
// them. Re-running is idempotent: writes merge by timestamp.
func (g *CryptoBarGatherer) Run(ctx context.Context) error {
	tf, err := ParseTimeFrame(g.timeframe)
	if err != nil {
		return err
	}
	start, err := time.Parse("2006-01-02", g.startDate)
	if err != nil {
		return fmt.Errorf("parsing start date %q: %w", g.startDate, err)
	}

	chunks := YearChunks(DateRange{Start: start, End: time.Now().UTC()})
	runStart := time.Now()
	var total int

	g.log.Info("starting crypto bar fetch",
		"symbol", g.symbol,
		"timeframe", g.timeframe,
		"start", g.startDate,
		"chunks", len(chunks),
	)

	for _, chunk := range chunks {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		var cryptoBars []marketdata.CryptoBar
		err := util.Retry(ctx, g.maxAttempts, time.Second, func() error {
			var fetchErr error
			cryptoBars, fetchErr = g.client.GetCryptoBars(g.symbol, marketdata.GetCryptoBarsRequest{
				TimeFrame: tf,
				Start:     chunk.Start,
				End:       chunk.End,
			})
			return fetchErr
		})
		if err != nil {
			return fmt.Errorf("fetching %s bars for %d: %w", g.symbol, chunk.Start.Year(), err)
		}

		bars := convertCryptoBars(g.symbol, cryptoBars)
		if len(bars) == 0 {
			g.log.Info("no bars in range", "year", chunk.Start.Year())
			continue
		}

		if err := g.store.WriteBars(ctx, bars, g.timeframe); err != nil {
			return fmt.Errorf("writing %s bars for %d: %w", g.symbol, chunk.Start.Year(), err)
		}

		total += len(bars)
		g.log.Info("chunk done", "year", chunk.Start.Year(), "bars", len(bars))
	}

	g.log.Info("complete",
		"symbol", g.symbol,
		"bars", total,
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return nil
}

// ParseTimeFrame maps a timeframe name to the Alpaca request value.
func ParseTimeFrame(name string) (marketdata.TimeFrame, error) {
	switch name {
	case "1Min":
		return marketdata.OneMin, nil
	case "1Hour":
		return marketdata.OneHour, nil
	case "1Day":
		return marketdata.OneDay, nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("unsupported timeframe %q", name)
	}
}

func convertCryptoBars(symbol string, in []marketdata.CryptoBar) []domain.Bar {
	bars := make([]domain.Bar, 0, len(in))
	for _, cb := range in {
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  cb.Timestamp,
			Open:       cb.Open,
			High:       cb.High,
			Low:        cb.Low,
			Close:      cb.Close,
			Volume:     cb.Volume,
			TradeCount: int64(cb.TradeCount),
			VWAP:       cb.VWAP,
		})
	}
	return bars
}
