package strategy

import (
	"errors"
	"testing"
	"time"

	"QuantSuperior/internal/model"
)

// top3Row returns a row that satisfies every TOP3 condition.
func top3Row() model.FeatureRow {
	return model.FeatureRow{
		Gap:             0.005,
		BenchmarkReturn: 0.004,
		VolIndexReturn:  -0.07,
		VolumeZ:         -1.0,
		Weekday:         time.Tuesday,
		HasBenchmark:    true,
		HasVolIndex:     true,
		HasVolumeZ:      true,
	}
}

func TestTop3_Conditions(t *testing.T) {
	rule := Top3(DefaultTop3Params())

	tests := []struct {
		name   string
		mutate func(r *model.FeatureRow)
		want   model.Position
		reason string
	}{
		{"all conditions met", func(r *model.FeatureRow) {}, model.Long, "top3 pattern"},
		{"gap at upper bound", func(r *model.FeatureRow) { r.Gap = 0.01 }, model.Long, "top3 pattern"},
		{"zero gap", func(r *model.FeatureRow) { r.Gap = 0 }, model.Flat, "gap outside band"},
		{"gap too large", func(r *model.FeatureRow) { r.Gap = 0.02 }, model.Flat, "gap outside band"},
		{"benchmark sell-off", func(r *model.FeatureRow) { r.BenchmarkReturn = -0.006 }, model.Flat, "benchmark filter"},
		{"benchmark slightly negative", func(r *model.FeatureRow) { r.BenchmarkReturn = -0.001 }, model.Flat, "benchmark outside band"},
		{"friday", func(r *model.FeatureRow) { r.Weekday = time.Friday }, model.Flat, "weekday filter"},
		{"vix not falling", func(r *model.FeatureRow) { r.VolIndexReturn = 0.01 }, model.Flat, "vol index outside band"},
		{"volume above average", func(r *model.FeatureRow) { r.VolumeZ = 0.3 }, model.Flat, "volume z outside band"},
		{"missing benchmark skipped", func(r *model.FeatureRow) { r.HasBenchmark, r.BenchmarkReturn = false, 0 }, model.Long, "top3 pattern"},
		{"missing vix skipped", func(r *model.FeatureRow) { r.HasVolIndex, r.VolIndexReturn = false, 0 }, model.Long, "top3 pattern"},
		{"missing volume z skipped", func(r *model.FeatureRow) { r.HasVolumeZ, r.VolumeZ = false, 0 }, model.Long, "top3 pattern"},
	}
	for _, tt := range tests {
		row := top3Row()
		tt.mutate(&row)
		d := rule(row, model.Flat)
		if d.Position != tt.want {
			t.Errorf("%s: expected %s, got %s (%s)", tt.name, tt.want, d.Position, d.Reason)
		}
		if d.Reason != tt.reason {
			t.Errorf("%s: expected reason %q, got %q", tt.name, tt.reason, d.Reason)
		}
	}
}

func TestTop3_Explain(t *testing.T) {
	rule := Top3(DefaultTop3Params())
	row := top3Row()
	row.HasVolIndex = false

	d := rule(row, model.Flat)
	if d.Explain[model.FeatureGap] != row.Gap {
		t.Errorf("explain gap: expected %f, got %f", row.Gap, d.Explain[model.FeatureGap])
	}
	if d.Explain[model.FeatureWeekday] != 1 {
		t.Errorf("explain dow: expected 1 for Tuesday, got %f", d.Explain[model.FeatureWeekday])
	}
	if _, ok := d.Explain[model.FeatureVolIndexReturn]; ok {
		t.Error("absent vix should not be explained")
	}
	if _, ok := d.Explain[model.FeatureRSI]; ok {
		t.Error("rsi is only explained when its band is set")
	}
}

func TestDayOfWeekStartsMonday(t *testing.T) {
	for wd, want := range map[time.Weekday]float64{
		time.Monday: 0, time.Thursday: 3, time.Friday: 4, time.Sunday: 6,
	} {
		if got := (model.FeatureRow{Weekday: wd}).DayOfWeek(); got != want {
			t.Errorf("%s: expected %v, got %v", wd, want, got)
		}
	}
}

func TestTop3_RSIBand(t *testing.T) {
	p := DefaultTop3Params()
	p.RSI = &Band{Min: 30, Max: 60}
	rule := Top3(p)

	tests := []struct {
		rsi    float64
		want   model.Position
		reason string
	}{
		{45, model.Long, "top3 pattern"},
		{30, model.Long, "top3 pattern"},
		{72, model.Flat, "rsi outside band"},
		{12, model.Flat, "rsi outside band"},
	}
	for _, tt := range tests {
		row := top3Row()
		row.RSI = tt.rsi
		d := rule(row, model.Flat)
		if d.Position != tt.want || d.Reason != tt.reason {
			t.Errorf("rsi %v: expected %s (%s), got %s (%s)", tt.rsi, tt.want, tt.reason, d.Position, d.Reason)
		}
		if d.Explain[model.FeatureRSI] != tt.rsi {
			t.Errorf("rsi %v: explain rsi = %v", tt.rsi, d.Explain[model.FeatureRSI])
		}
	}

	p.RSI = &Band{Min: 70, Max: 30}
	if err := p.Validate(); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("inverted rsi band: expected configuration error, got %v", err)
	}
}

func TestGapThreshold(t *testing.T) {
	p := GapParams{LongGap: 0.03, ShortGap: 0.03, MinRelative: 0.001, AllowShort: true}

	tests := []struct {
		name  string
		p     GapParams
		gap   float64
		rel   float64
		prior model.Position
		want  model.Position
	}{
		{"gap up confirmed", p, 0.05, 0.002, model.Flat, model.Long},
		{"gap up unconfirmed", p, 0.05, 0, model.Flat, model.Flat},
		{"gap down", p, -0.04, -0.01, model.Long, model.Short},
		{"shorts disabled", GapParams{LongGap: 0.03, ShortGap: 0.03}, -0.04, -0.01, model.Flat, model.Flat},
		{"quiet day", p, 0.001, 0, model.Long, model.Flat},
		{"sticky keeps long", GapParams{LongGap: 0.03, Sticky: true}, 0.001, 0, model.Long, model.Long},
		{"sticky keeps flat", GapParams{LongGap: 0.03, Sticky: true}, 0.001, 0, model.Flat, model.Flat},
	}
	for _, tt := range tests {
		row := model.FeatureRow{Gap: tt.gap, RelativeReturn: tt.rel}
		d := GapThreshold(tt.p)(row, tt.prior)
		if d.Position != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, d.Position)
		}
		if d.Explain[model.FeatureGap] != tt.gap {
			t.Errorf("%s: explain gap mismatch", tt.name)
		}
	}
}

func TestNew(t *testing.T) {
	if _, err := New(DefaultParams()); err != nil {
		t.Fatalf("default params: %v", err)
	}
	if _, err := New(Params{Name: RuleGap, Gap: DefaultGapParams()}); err != nil {
		t.Fatalf("gap params: %v", err)
	}

	bad := []Params{
		{Name: "momentum"},
		{Name: RuleGap, Gap: GapParams{LongGap: 0}},
		{Name: RuleGap, Gap: GapParams{LongGap: 0.01, AllowShort: true}},
		{Name: RuleTop3, Top3: Top3Params{MaxGap: 0.01, VolumeZ: Band{Min: 1, Max: -1}}},
	}
	for i, p := range bad {
		if _, err := New(p); !errors.Is(err, model.ErrConfiguration) {
			t.Errorf("case %d: expected configuration error, got %v", i, err)
		}
	}
}

func TestRulesAreDeterministic(t *testing.T) {
	rule, err := New(DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	row := top3Row()
	a, b := rule(row, model.Flat), rule(row, model.Flat)
	if a.Position != b.Position || a.Reason != b.Reason || len(a.Explain) != len(b.Explain) {
		t.Errorf("same input gave different decisions: %+v vs %+v", a, b)
	}
}
