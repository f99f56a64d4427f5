package strategy

import (
	"fmt"

	"QuantSuperior/internal/model"
)

// GapParams tunes the gap threshold rule.
type GapParams struct {
	LongGap     float64 `yaml:"long_gap"`     // go long when gap >= LongGap
	ShortGap    float64 `yaml:"short_gap"`    // go short when gap <= -ShortGap
	MinRelative float64 `yaml:"min_relative"` // required |return - benchmark return| in the gap's direction
	AllowShort  bool    `yaml:"allow_short"`
	Sticky      bool    `yaml:"sticky"` // keep the prior position on neutral days
}

func DefaultGapParams() GapParams {
	return GapParams{LongGap: 0.01, ShortGap: 0.01}
}

func (p GapParams) Validate() error {
	if p.LongGap <= 0 {
		return fmt.Errorf("%w: gap long threshold must be positive", model.ErrConfiguration)
	}
	if p.AllowShort && p.ShortGap <= 0 {
		return fmt.Errorf("%w: gap short threshold must be positive", model.ErrConfiguration)
	}
	if p.MinRelative < 0 {
		return fmt.Errorf("%w: gap min relative return must be >= 0", model.ErrConfiguration)
	}
	return nil
}

// GapThreshold goes with large overnight gaps confirmed by the day's
// return relative to the benchmark.
func GapThreshold(p GapParams) Rule {
	return func(row model.FeatureRow, prior model.Position) model.Decision {
		explain := map[string]float64{
			model.FeatureGap:            row.Gap,
			model.FeatureRelativeReturn: row.RelativeReturn,
		}

		switch {
		case row.Gap >= p.LongGap && row.RelativeReturn >= p.MinRelative:
			return model.Decision{Position: model.Long, Reason: "gap up", Explain: explain}
		case p.AllowShort && row.Gap <= -p.ShortGap && row.RelativeReturn <= -p.MinRelative:
			return model.Decision{Position: model.Short, Reason: "gap down", Explain: explain}
		case p.Sticky:
			return model.Decision{Position: prior, Reason: "hold", Explain: explain}
		}
		return model.Decision{Position: model.Flat, Reason: "no gap", Explain: explain}
	}
}
