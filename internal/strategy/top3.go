package strategy

import (
	"fmt"
	"time"

	"QuantSuperior/internal/model"
)

// Top3Params tunes the TOP3 overnight pattern: a small positive gap on a
// calm, rising benchmark day with a falling volatility index and a
// below-average volume.
type Top3Params struct {
	MinBenchmark float64        `yaml:"min_benchmark"` // filter: skip days when the benchmark fell more than this
	AllowedDays  []time.Weekday `yaml:"allowed_days"`  // filter: empty means every day
	MaxGap       float64        `yaml:"max_gap"`       // pattern: 0 < gap <= MaxGap
	Benchmark    Band           `yaml:"benchmark"`
	VolIndex     Band           `yaml:"vol_index"`
	VolumeZ      Band           `yaml:"volume_z"`
	RSI          *Band          `yaml:"rsi"` // optional: unset skips the check
}

func DefaultTop3Params() Top3Params {
	return Top3Params{
		MinBenchmark: -0.005,
		AllowedDays:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday},
		MaxGap:       0.01,
		Benchmark:    Band{Min: 0, Max: 0.01},
		VolIndex:     Band{Min: -0.10, Max: -0.05},
		VolumeZ:      Band{Min: -1.5, Max: -0.5},
	}
}

func (p Top3Params) Validate() error {
	if p.MaxGap <= 0 {
		return fmt.Errorf("%w: top3 max gap must be positive", model.ErrConfiguration)
	}
	if err := p.Benchmark.validate("top3 benchmark"); err != nil {
		return err
	}
	if err := p.VolIndex.validate("top3 vol index"); err != nil {
		return err
	}
	if err := p.VolumeZ.validate("top3 volume z"); err != nil {
		return err
	}
	if p.RSI != nil {
		return p.RSI.validate("top3 rsi")
	}
	return nil
}

// Top3 returns the TOP3 rule: LONG when every available input sits in its
// band, FLAT otherwise. Checks on inputs missing for the day are skipped.
func Top3(p Top3Params) Rule {
	return func(row model.FeatureRow, _ model.Position) model.Decision {
		explain := map[string]float64{
			model.FeatureGap:     row.Gap,
			model.FeatureWeekday: row.DayOfWeek(),
		}
		if row.HasBenchmark {
			explain[model.FeatureBenchmarkReturn] = row.BenchmarkReturn
		}
		if row.HasVolIndex {
			explain[model.FeatureVolIndexReturn] = row.VolIndexReturn
		}
		if row.HasVolumeZ {
			explain[model.FeatureVolumeZ] = row.VolumeZ
		}
		if p.RSI != nil {
			explain[model.FeatureRSI] = row.RSI
		}
		flat := func(reason string) model.Decision {
			return model.Decision{Position: model.Flat, Reason: reason, Explain: explain}
		}

		switch {
		case row.HasBenchmark && row.BenchmarkReturn < p.MinBenchmark:
			return flat("benchmark filter")
		case !weekdayAllowed(p.AllowedDays, row.Weekday):
			return flat("weekday filter")
		case !(row.Gap > 0 && row.Gap <= p.MaxGap):
			return flat("gap outside band")
		case row.HasBenchmark && !p.Benchmark.Contains(row.BenchmarkReturn):
			return flat("benchmark outside band")
		case row.HasVolIndex && !p.VolIndex.Contains(row.VolIndexReturn):
			return flat("vol index outside band")
		case row.HasVolumeZ && !p.VolumeZ.Contains(row.VolumeZ):
			return flat("volume z outside band")
		case p.RSI != nil && !p.RSI.Contains(row.RSI):
			return flat("rsi outside band")
		}
		return model.Decision{Position: model.Long, Reason: "top3 pattern", Explain: explain}
	}
}
