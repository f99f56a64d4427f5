package model

import "time"

// OHLCV represents a single candlestick bar as returned by a fetcher.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Bar is one trading day of the traded index, optionally enriched with the
// benchmark and volatility-index closes of the same calendar date.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`

	BenchmarkClose *float64 `json:"benchmark_close,omitempty"`
	VolIndexClose  *float64 `json:"vol_index_close,omitempty"`
}

// DateKey returns the calendar date used to align series.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Float returns a pointer to v, for the optional Bar fields.
func Float(v float64) *float64 {
	return &v
}
