package model

import (
	"fmt"
	"time"
)

// Position is the directional exposure held for a day.
type Position int8

const (
	Flat Position = iota
	Long
	Short
)

func (p Position) String() string {
	switch p {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Multiplier maps the position onto the underlying's daily return.
func (p Position) Multiplier() float64 {
	switch p {
	case Long:
		return 1
	case Short:
		return -1
	default:
		return 0
	}
}

// Legs is the number of cost legs paid when moving from p to next.
func (p Position) Legs(next Position) int {
	switch {
	case p == next:
		return 0
	case p == Flat || next == Flat:
		return 1
	default:
		return 2
	}
}

func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Position) UnmarshalText(b []byte) error {
	switch string(b) {
	case "LONG":
		*p = Long
	case "SHORT":
		*p = Short
	case "FLAT":
		*p = Flat
	default:
		return fmt.Errorf("unknown position %q", string(b))
	}
	return nil
}

// Decision is the output of a strategy rule for one row.
type Decision struct {
	Position Position
	Reason   string
	Explain  map[string]float64
}

// Trade is one holding span between two position changes.
type Trade struct {
	Side       Position  `json:"side"`
	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitDate   time.Time `json:"exit_date"`
	ExitPrice  float64   `json:"exit_price"`
	Days       int       `json:"days"`
	Return     float64   `json:"return"`
	RawPoints  float64   `json:"raw_points"`
	CostPoints float64   `json:"cost_points"`
	PnLPoints  float64   `json:"pnl_points"`
	Open       bool      `json:"open"`
}

// EquityPoint is the strategy equity at the close of a day.
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Marker annotates a trade open or close on a chart.
type Marker struct {
	Date     time.Time `json:"date"`
	Side     Position  `json:"side"`
	Label    string    `json:"label"`
	Position string    `json:"position"`
	Shape    string    `json:"shape"`
	Color    string    `json:"color"`
}

// Metrics summarizes a backtest.
type Metrics struct {
	TotalTrades      int     `json:"total_trades"`
	OpenTrades       int     `json:"open_trades"`
	WinRate          float64 `json:"win_rate"`
	AvgTradePct      float64 `json:"avg_trade_pct"`
	AvgPoints        float64 `json:"avg_points"`
	CumulativeReturn float64 `json:"cumulative_return"`
	TotalReturnPct   float64 `json:"total_return_pct"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	Sharpe           float64 `json:"sharpe"`
	Exposure         float64 `json:"exposure"`
	CAGR             float64 `json:"cagr"`
}

// SignalNext is the decision for the most recent bar, not yet realized.
type SignalNext struct {
	Date    time.Time          `json:"date"`
	Signal  Position           `json:"signal"`
	Reason  string             `json:"reason,omitempty"`
	Explain map[string]float64 `json:"explain"`
}
