// Package backtest walks feature rows day by day, applies a strategy rule
// and accounts for the resulting equity, trades and metrics.
package backtest

import (
	"fmt"
	"math"

	"QuantSuperior/internal/calculator"
	"QuantSuperior/internal/model"
	"QuantSuperior/internal/strategy"
)

// DefaultCostBpsPerSide is the transaction cost charged per leg.
const DefaultCostBpsPerSide = 2.0

// Config holds the immutable parameters of one run.
type Config struct {
	CostBpsPerSide float64
	Rule           strategy.Rule
}

// Validate checks the cost and the rule.
func (c Config) Validate() error {
	if !calculator.Finite(c.CostBpsPerSide) || c.CostBpsPerSide < 0 {
		return fmt.Errorf("%w: cost_bps_per_side must be a non-negative number, got %v", model.ErrConfiguration, c.CostBpsPerSide)
	}
	if c.Rule == nil {
		return fmt.Errorf("%w: no strategy rule", model.ErrConfiguration)
	}
	return nil
}

// Result is everything a run produces.
type Result struct {
	Equity     []model.EquityPoint `json:"equity"`
	Positions  []model.Position    `json:"positions"`
	Trades     []model.Trade       `json:"trades"`
	Markers    []model.Marker      `json:"markers"`
	Metrics    model.Metrics       `json:"metrics"`
	SignalNext model.SignalNext    `json:"signal_next"`
}

// openTrade tracks the span currently held.
type openTrade struct {
	side       model.Position
	entryDate  int
	entryPrice float64
	days       int
}

// Run simulates the rule over rows. The decision taken on row i sets the
// position held on day i+1; day 0 is always flat.
func Run(rows []model.FeatureRow, cfg Config) (*Result, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no feature rows", model.ErrInsufficientData)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for i := 1; i < len(rows); i++ {
		if !rows[i].Date.After(rows[i-1].Date) {
			return nil, fmt.Errorf("%w: row %d (%s) is not after %s",
				model.ErrDataIntegrity, i, model.DateKey(rows[i].Date), model.DateKey(rows[i-1].Date))
		}
	}

	leg := cfg.CostBpsPerSide / 10000
	res := &Result{
		Equity:    make([]model.EquityPoint, len(rows)),
		Positions: make([]model.Position, len(rows)),
		Trades:    []model.Trade{},
		Markers:   []model.Marker{},
	}

	held := model.Flat
	equity := 1.0
	var cur *openTrade

	res.Equity[0] = model.EquityPoint{Date: rows[0].Date, Value: equity}
	decision := cfg.Rule(rows[0], held)

	for i := 1; i < len(rows); i++ {
		next := decision.Position
		ret := dailyReturn(rows[i-1], rows[i])
		legs := held.Legs(next)

		if legs > 0 {
			if cur != nil {
				res.closeTrade(rows, cur, i-1, leg, false)
				cur = nil
			}
			if next != model.Flat {
				cur = &openTrade{side: next, entryDate: i - 1, entryPrice: rows[i-1].Close}
				res.Markers = append(res.Markers, openMarker(rows[i-1], next))
			}
		}

		stratRet := next.Multiplier() * ret
		equity *= 1 + stratRet - float64(legs)*leg
		if cur != nil {
			cur.days++
		}

		held = next
		res.Positions[i] = held
		res.Equity[i] = model.EquityPoint{Date: rows[i].Date, Value: equity}
		decision = cfg.Rule(rows[i], held)
	}

	if cur != nil {
		res.closeTrade(rows, cur, len(rows)-1, leg, true)
	}

	last := rows[len(rows)-1]
	res.SignalNext = model.SignalNext{
		Date:    last.Date,
		Signal:  decision.Position,
		Reason:  decision.Reason,
		Explain: decision.Explain,
	}
	res.Metrics = computeMetrics(res.Trades, res.Equity, res.Positions)
	return res, nil
}

// dailyReturn is the close-to-close return realized on day cur; a
// non-finite value is treated as no move.
func dailyReturn(prev, cur model.FeatureRow) float64 {
	return calculator.Ratio(cur.Close, prev.Close)
}

// closeTrade records t as exiting at the close of row exit. Its return is
// the equity ratio over the holding span, which already carries the entry
// leg; the exit leg lands on the following day and is applied here. A trade
// still held at the end is marked to market without an exit leg.
func (r *Result) closeTrade(rows []model.FeatureRow, t *openTrade, exit int, leg float64, stillOpen bool) {
	growth := r.Equity[exit].Value / r.Equity[t.entryDate].Value
	if !calculator.Finite(growth) {
		growth = 1
	}
	legs := 1
	if !stillOpen {
		growth *= 1 - leg
		legs = 2
	}
	exitPrice := rows[exit].Close
	raw := t.side.Multiplier() * (exitPrice - t.entryPrice)
	cost := float64(legs) * leg * t.entryPrice
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		raw = 0
	}

	r.Trades = append(r.Trades, model.Trade{
		Side:       t.side,
		EntryDate:  rows[t.entryDate].Date,
		EntryPrice: t.entryPrice,
		ExitDate:   rows[exit].Date,
		ExitPrice:  exitPrice,
		Days:       t.days,
		Return:     growth - 1,
		RawPoints:  raw,
		CostPoints: cost,
		PnLPoints:  raw - cost,
		Open:       stillOpen,
	})
	if !stillOpen {
		r.Markers = append(r.Markers, closeMarker(rows[exit], t.side))
	}
}

func openMarker(row model.FeatureRow, side model.Position) model.Marker {
	if side == model.Short {
		return model.Marker{Date: row.Date, Side: side, Label: "QS SHORT", Position: "aboveBar", Shape: "arrowDown", Color: colorDown}
	}
	return model.Marker{Date: row.Date, Side: side, Label: "QS BUY", Position: "belowBar", Shape: "arrowUp", Color: colorUp}
}

func closeMarker(row model.FeatureRow, side model.Position) model.Marker {
	if side == model.Short {
		return model.Marker{Date: row.Date, Side: side, Label: "QS COVER", Position: "belowBar", Shape: "arrowUp", Color: colorUp}
	}
	return model.Marker{Date: row.Date, Side: side, Label: "QS SELL", Position: "aboveBar", Shape: "arrowDown", Color: colorDown}
}

const (
	colorUp   = "#26a69a"
	colorDown = "#ef5350"
)
