// Package features derives per-day analytic features from daily bars.
package features

import (
	"fmt"

	"QuantSuperior/internal/calculator"
	"QuantSuperior/internal/model"
)

// Config fixes the look-back windows of the rolling features.
type Config struct {
	VolWindow    int `yaml:"vol_window"`    // daily returns in the volatility window
	VolumeWindow int `yaml:"volume_window"` // volumes in the volume MA / z-score window
	RSIPeriod    int `yaml:"rsi_period"`
}

// DefaultConfig returns 20-day windows and a 14-period RSI.
func DefaultConfig() Config {
	return Config{VolWindow: 20, VolumeWindow: 20, RSIPeriod: 14}
}

// Validate checks that every window is usable.
func (c Config) Validate() error {
	if c.VolWindow < 2 {
		return fmt.Errorf("%w: vol window must be >= 2, got %d", model.ErrConfiguration, c.VolWindow)
	}
	if c.VolumeWindow < 1 {
		return fmt.Errorf("%w: volume window must be >= 1, got %d", model.ErrConfiguration, c.VolumeWindow)
	}
	if c.RSIPeriod < 1 {
		return fmt.Errorf("%w: rsi period must be >= 1, got %d", model.ErrConfiguration, c.RSIPeriod)
	}
	return nil
}

// Build decorates bars with features in a single forward pass. Row i only
// reads bars[0..i]. Non-finite inputs yield 0 for the features they feed.
func Build(bars []model.Bar, cfg Config) ([]model.FeatureRow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateBars(bars); err != nil {
		return nil, err
	}

	rows := make([]model.FeatureRow, len(bars))
	returns := make([]float64, 0, len(bars))
	volumes := make([]float64, 0, len(bars))
	closes := make([]float64, 0, len(bars))

	for i, b := range bars {
		row := model.FeatureRow{
			Bar:      b,
			Weekday:  b.Date.Weekday(),
			Intraday: calculator.Ratio(b.Close, b.Open),
		}

		if i > 0 {
			prev := bars[i-1]
			row.Gap = calculator.Ratio(b.Open, prev.Close)
			row.Return = calculator.Ratio(b.Close, prev.Close)
			row.BenchmarkReturn, row.HasBenchmark = auxReturn(b.BenchmarkClose, prev.BenchmarkClose)
			row.VolIndexReturn, row.HasVolIndex = auxReturn(b.VolIndexClose, prev.VolIndexClose)
			returns = append(returns, row.Return)
		}
		if row.HasBenchmark {
			row.RelativeReturn = neutral(row.Return - row.BenchmarkReturn)
		}
		row.Volatility = neutral(calculator.StdDev(calculator.Tail(returns, cfg.VolWindow)))

		if calculator.Finite(b.Volume) {
			volumes = append(volumes, b.Volume)
			window := calculator.Tail(volumes, cfg.VolumeWindow)
			row.VolumeMA = neutral(calculator.Mean(window))
			row.VolumeZ, row.HasVolumeZ = calculator.ZScore(b.Volume, row.VolumeMA, calculator.PopStdDev(window))
		}

		if calculator.Finite(b.Close) {
			closes = append(closes, b.Close)
		}
		rsi, err := calculator.CalculateRSI(closes, cfg.RSIPeriod)
		if err != nil {
			return nil, fmt.Errorf("rsi at %s: %w", model.DateKey(b.Date), err)
		}
		row.RSI = neutral(rsi)

		rows[i] = row
	}
	return rows, nil
}

// ValidateBars rejects input that cannot produce a trustworthy feature set:
// empty input, dates that do not strictly increase, non-positive prices,
// negative volume, or a high below the low.
func ValidateBars(bars []model.Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("%w: no bars", model.ErrInsufficientData)
	}
	for i, b := range bars {
		day := model.DateKey(b.Date)
		if i > 0 && !b.Date.After(bars[i-1].Date) {
			return fmt.Errorf("%w: bar %d (%s) is not after %s", model.ErrDataIntegrity, i, day, model.DateKey(bars[i-1].Date))
		}
		// NaN compares false and passes here; it is neutralized during Build.
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("%w: non-positive price on %s", model.ErrDataIntegrity, day)
		}
		if b.Volume < 0 {
			return fmt.Errorf("%w: negative volume on %s", model.ErrDataIntegrity, day)
		}
		if b.High < b.Low {
			return fmt.Errorf("%w: high %.4f below low %.4f on %s", model.ErrDataIntegrity, b.High, b.Low, day)
		}
	}
	return nil
}

func auxReturn(cur, prev *float64) (float64, bool) {
	if cur == nil || prev == nil {
		return 0, false
	}
	if !calculator.Finite(*cur) || !calculator.Finite(*prev) || *prev <= 0 {
		return 0, false
	}
	return calculator.Ratio(*cur, *prev), true
}

func neutral(v float64) float64 {
	if !calculator.Finite(v) {
		return 0
	}
	return v
}
