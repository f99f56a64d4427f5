package model

import "time"

// FeatureRow is a Bar decorated with features derived from it and the bars
// before it. Rows without enough history carry 0.
type FeatureRow struct {
	Bar

	Return          float64 // close / prev close - 1
	Gap             float64 // open / prev close - 1
	Intraday        float64 // close / open - 1
	BenchmarkReturn float64
	RelativeReturn  float64 // Return - BenchmarkReturn
	VolIndexReturn  float64
	Volatility      float64 // sample stddev of recent daily returns
	VolumeMA        float64
	VolumeZ         float64
	RSI             float64
	Weekday         time.Weekday

	HasBenchmark bool
	HasVolIndex  bool
	HasVolumeZ   bool
}

// Feature names used in explain maps.
const (
	FeatureReturn          = "return"
	FeatureGap             = "gap_open"
	FeatureIntraday        = "intraday"
	FeatureBenchmarkReturn = "spy_ret"
	FeatureRelativeReturn  = "rel_ret"
	FeatureVolIndexReturn  = "vix_ret"
	FeatureVolatility      = "volatility"
	FeatureVolumeZ         = "vol_z"
	FeatureRSI             = "rsi"
	FeatureWeekday         = "dow"
)

// DayOfWeek numbers the bar's weekday from Monday = 0 to Sunday = 6, the
// convention used in explain maps and alerts.
func (r FeatureRow) DayOfWeek() float64 {
	return float64((r.Weekday + 6) % 7)
}
