package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ganymede/internal/domain"
	"ganymede/internal/indicator"
)

// Timestamp layouts accepted in CSV input, tried in order.
var csvTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LoadBarsCSV reads an OHLCV series from a CSV file with the header
// timestamp,open,high,low,close,volume (column order taken from the header;
// extra columns are ignored). Rows must already be in ascending timestamp
// order; callers validate the series before simulating.
func LoadBarsCSV(path, symbol string) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"timestamp", "open", "high", "low", "close", "volume"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, required)
		}
	}

	bars := make([]domain.Bar, 0, len(rows)-1)
	for n, row := range rows[1:] {
		ts, err := parseCSVTime(row[col["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, n+2, err)
		}

		fields := [5]float64{}
		for i, name := range []string{"open", "high", "low", "close", "volume"} {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[col[name]]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: bad %s: %w", path, n+2, name, err)
			}
			fields[i] = v
		}

		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: ts,
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
		})
	}
	return bars, nil
}

func parseCSVTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range csvTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// WriteBarsCSV writes an OHLCV series in the layout LoadBarsCSV reads, so an
// exported file round-trips as backtest input.
func WriteBarsCSV(path string, bars []domain.Bar) error {
	return writeCSV(path, []string{"timestamp", "open", "high", "low", "close", "volume"}, len(bars), func(i int) []string {
		b := bars[i]
		return []string{
			b.Timestamp.UTC().Format(time.RFC3339),
			formatF(b.Open),
			formatF(b.High),
			formatF(b.Low),
			formatF(b.Close),
			formatF(b.Volume),
		}
	})
}

// WriteEquityCSV writes the equity curve as timestamp,equity rows.
func WriteEquityCSV(path string, equity []domain.EquityPoint) error {
	return writeCSV(path, []string{"timestamp", "equity"}, len(equity), func(i int) []string {
		return []string{
			equity[i].Timestamp.UTC().Format(time.RFC3339),
			formatF(equity[i].Equity),
		}
	})
}

// WriteTradesCSV writes the trade log as
// timestamp,side,price,quantity,cash_after rows.
func WriteTradesCSV(path string, trades []domain.Trade) error {
	return writeCSV(path, []string{"timestamp", "side", "price", "quantity", "cash_after"}, len(trades), func(i int) []string {
		t := trades[i]
		return []string{
			t.Timestamp.UTC().Format(time.RFC3339),
			string(t.Side),
			formatF(t.Price),
			formatF(t.Quantity),
			formatF(t.CashAfter),
		}
	})
}

// WriteSignalsCSV writes the per-bar strategy view: close price, both
// indicator values (empty while the window is filling), and the signal.
func WriteSignalsCSV(path string, bars []domain.Bar, fast, slow []indicator.Value, signals []domain.Signal) error {
	return writeCSV(path, []string{"timestamp", "close", "sma_fast", "sma_slow", "signal"}, len(bars), func(i int) []string {
		return []string{
			bars[i].Timestamp.UTC().Format(time.RFC3339),
			formatF(bars[i].Close),
			formatIndicator(fast[i]),
			formatIndicator(slow[i]),
			signals[i].String(),
		}
	})
}

func writeCSV(path string, header []string, n int, row func(i int) []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func formatIndicator(v indicator.Value) string {
	if !v.Valid {
		return ""
	}
	return formatF(v.V)
}
