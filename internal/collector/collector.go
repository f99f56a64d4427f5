// Package collector downloads the traded index and its auxiliary series and
// aligns them into daily bars.
package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"QuantSuperior/internal/metrics"
	"QuantSuperior/internal/model"
	"QuantSuperior/internal/trace"
)

// Collector fetches the index series and, when configured, the benchmark
// and volatility-index series from the same source.
type Collector struct {
	Fetcher   Fetcher
	Benchmark string
	VolIndex  string
	logger    *zap.Logger
}

// NewCollector creates a new Collector. Empty auxiliary symbols are skipped.
func NewCollector(fetcher Fetcher, benchmark, volIndex string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{Fetcher: fetcher, Benchmark: benchmark, VolIndex: volIndex, logger: logger}
}

// Collect returns the index bars for period with the auxiliary closes of
// the same calendar date attached. The index is required; an auxiliary
// series that fails to download is logged and left absent.
func (c *Collector) Collect(ctx context.Context, symbol, period string) ([]model.Bar, error) {
	ctx, span := trace.StartSpan(ctx, "collector.Collect")
	defer span.End()

	index, err := c.fetch(ctx, symbol, period)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if len(index) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s", model.ErrInsufficientData, symbol)
	}

	benchmark := c.closesByDate(ctx, c.Benchmark, period)
	volIndex := c.closesByDate(ctx, c.VolIndex, period)

	bars := Merge(index, benchmark, volIndex)
	c.logger.Info("collected bars",
		zap.String("symbol", symbol),
		zap.String("period", period),
		zap.Int("index", len(index)),
		zap.Int("benchmark", len(benchmark)),
		zap.Int("vol_index", len(volIndex)),
		zap.Int("bars", len(bars)),
	)
	return bars, nil
}

func (c *Collector) fetch(ctx context.Context, symbol, period string) ([]model.OHLCV, error) {
	source := c.Fetcher.Name()
	start := time.Now()
	bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, period)
	metrics.FetchLatency.WithLabelValues(source, symbol).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchErrors.WithLabelValues(source, symbol).Inc()
		return nil, err
	}
	return bars, nil
}

func (c *Collector) closesByDate(ctx context.Context, symbol, period string) map[string]float64 {
	if symbol == "" {
		return nil
	}
	bars, err := c.fetch(ctx, symbol, period)
	if err != nil {
		c.logger.Warn("auxiliary series unavailable", zap.String("symbol", symbol), zap.Error(err))
		return nil
	}
	out := make(map[string]float64, len(bars))
	for _, b := range bars {
		out[model.DateKey(b.Time)] = b.Close
	}
	return out
}

// Merge converts index bars to model bars keyed by calendar date and
// attaches the auxiliary closes found on the same date. Repeated dates keep
// the last bar; the result is in date order.
func Merge(index []model.OHLCV, benchmark, volIndex map[string]float64) []model.Bar {
	bars := make([]model.Bar, 0, len(index))
	for _, o := range index {
		day := time.Date(o.Time.Year(), o.Time.Month(), o.Time.Day(), 0, 0, 0, 0, time.UTC)
		b := model.Bar{
			Date:   day,
			Open:   o.Open,
			High:   o.High,
			Low:    o.Low,
			Close:  o.Close,
			Volume: o.Volume,
		}
		key := model.DateKey(day)
		if v, ok := benchmark[key]; ok {
			b.BenchmarkClose = model.Float(v)
		}
		if v, ok := volIndex[key]; ok {
			b.VolIndexClose = model.Float(v)
		}

		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
