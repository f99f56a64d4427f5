package strategy

import (
	"fmt"
	"time"

	"QuantSuperior/internal/model"
)

// Rule maps a feature row and the position currently held to the position
// for the next day. Rules are pure: same inputs, same decision.
type Rule func(row model.FeatureRow, prior model.Position) model.Decision

// Rule names accepted by New.
const (
	RuleTop3 = "top3"
	RuleGap  = "gap"
)

// Params selects and tunes a rule.
type Params struct {
	Name string     `yaml:"rule"`
	Top3 Top3Params `yaml:"top3"`
	Gap  GapParams  `yaml:"gap"`
}

// Band is an inclusive [Min, Max] range.
type Band struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v lies inside the band.
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

func (b Band) validate(name string) error {
	if b.Min > b.Max {
		return fmt.Errorf("%w: %s band min %.4f > max %.4f", model.ErrConfiguration, name, b.Min, b.Max)
	}
	return nil
}

// DefaultParams returns the TOP3 rule with its FTSEMIB thresholds.
func DefaultParams() Params {
	return Params{
		Name: RuleTop3,
		Top3: DefaultTop3Params(),
		Gap:  DefaultGapParams(),
	}
}

// New builds the rule named in p.
func New(p Params) (Rule, error) {
	switch p.Name {
	case RuleTop3, "":
		if err := p.Top3.Validate(); err != nil {
			return nil, err
		}
		return Top3(p.Top3), nil
	case RuleGap:
		if err := p.Gap.Validate(); err != nil {
			return nil, err
		}
		return GapThreshold(p.Gap), nil
	default:
		return nil, fmt.Errorf("%w: unknown rule %q", model.ErrConfiguration, p.Name)
	}
}

func weekdayAllowed(days []time.Weekday, d time.Weekday) bool {
	if len(days) == 0 {
		return true
	}
	for _, a := range days {
		if a == d {
			return true
		}
	}
	return false
}
