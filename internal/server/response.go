package server

import (
	"time"

	"github.com/shopspring/decimal"

	"QuantSuperior/internal/calculator"
	"QuantSuperior/internal/model"
	"QuantSuperior/internal/pipeline"
)

const (
	volumeUp   = "rgba(38,166,154,0.5)"
	volumeDown = "rgba(239,83,80,0.5)"
)

type candle struct {
	Date  string  `json:"date"`
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

type volumeBar struct {
	Date  string  `json:"date"`
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

type equityPoint struct {
	Date  string  `json:"date"`
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

type marker struct {
	Date     string `json:"date"`
	Time     int64  `json:"time"`
	Side     string `json:"side"`
	Label    string `json:"label"`
	Text     string `json:"text"`
	Position string `json:"position"`
	Shape    string `json:"shape"`
	Color    string `json:"color"`
}

type trade struct {
	Side       string  `json:"side"`
	EntryDate  string  `json:"entry_date"`
	EntryPrice float64 `json:"entry_price"`
	ExitDate   string  `json:"exit_date"`
	ExitPrice  float64 `json:"exit_price"`
	Days       int     `json:"days"`
	ReturnPct  float64 `json:"return_pct"`
	PnLPoints  float64 `json:"pnl_points"`
	Open       bool    `json:"open"`
}

type signalNext struct {
	Date    string             `json:"date"`
	Signal  string             `json:"signal"`
	Reason  string             `json:"reason,omitempty"`
	Explain map[string]float64 `json:"explain"`
}

type meta struct {
	Symbol      string  `json:"symbol"`
	TF          string  `json:"tf"`
	Rows        int     `json:"rows"`
	Source      string  `json:"source"`
	Period      string  `json:"period"`
	CostBps     float64 `json:"cost_bps"`
	RunID       string  `json:"run_id"`
	GeneratedAt string  `json:"generated_at"`
}

type response struct {
	Candles    []candle      `json:"candles"`
	Volume     []volumeBar   `json:"volume"`
	Equity     []equityPoint `json:"equity"`
	Markers    []marker      `json:"markers"`
	Trades     []trade       `json:"trades"`
	Metrics    model.Metrics `json:"metrics"`
	SignalNext signalNext    `json:"signal_next"`
	Meta       meta          `json:"meta"`
}

func buildResponse(r *pipeline.Report) response {
	res := r.Result
	out := response{
		Candles: make([]candle, len(r.Bars)),
		Volume:  make([]volumeBar, len(r.Bars)),
		Equity:  make([]equityPoint, len(res.Equity)),
		Markers: make([]marker, len(res.Markers)),
		Trades:  make([]trade, len(res.Trades)),
		Metrics: roundMetrics(res.Metrics),
		SignalNext: signalNext{
			Date:    model.DateKey(res.SignalNext.Date),
			Signal:  res.SignalNext.Signal.String(),
			Reason:  res.SignalNext.Reason,
			Explain: roundExplain(res.SignalNext.Explain),
		},
		Meta: meta{
			Symbol:      r.Symbol,
			TF:          "1d",
			Rows:        len(r.Bars),
			Source:      r.Source,
			Period:      r.Period,
			CostBps:     r.CostBps,
			RunID:       r.RunID,
			GeneratedAt: r.GeneratedAt.Format(time.RFC3339),
		},
	}

	for i, b := range r.Bars {
		date, ts := model.DateKey(b.Date), b.Date.Unix()
		out.Candles[i] = candle{Date: date, Time: ts, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close}
		color := volumeDown
		if b.Close > b.Open {
			color = volumeUp
		}
		out.Volume[i] = volumeBar{Date: date, Time: ts, Value: b.Volume, Color: color}
	}
	for i, p := range res.Equity {
		out.Equity[i] = equityPoint{Date: model.DateKey(p.Date), Time: p.Date.Unix(), Value: round(p.Value, 6)}
	}
	for i, m := range res.Markers {
		out.Markers[i] = marker{
			Date:     model.DateKey(m.Date),
			Time:     m.Date.Unix(),
			Side:     m.Side.String(),
			Label:    m.Label,
			Text:     m.Label,
			Position: m.Position,
			Shape:    m.Shape,
			Color:    m.Color,
		}
	}
	for i, t := range res.Trades {
		out.Trades[i] = trade{
			Side:       t.Side.String(),
			EntryDate:  model.DateKey(t.EntryDate),
			EntryPrice: t.EntryPrice,
			ExitDate:   model.DateKey(t.ExitDate),
			ExitPrice:  t.ExitPrice,
			Days:       t.Days,
			ReturnPct:  round(t.Return*100, 4),
			PnLPoints:  round(t.PnLPoints, 2),
			Open:       t.Open,
		}
	}
	return out
}

func roundMetrics(m model.Metrics) model.Metrics {
	m.WinRate = round(m.WinRate, 4)
	m.AvgTradePct = round(m.AvgTradePct, 4)
	m.AvgPoints = round(m.AvgPoints, 2)
	m.CumulativeReturn = round(m.CumulativeReturn, 6)
	m.TotalReturnPct = round(m.TotalReturnPct, 2)
	m.MaxDrawdown = round(m.MaxDrawdown, 4)
	m.Sharpe = round(m.Sharpe, 2)
	m.Exposure = round(m.Exposure, 4)
	m.CAGR = round(m.CAGR, 4)
	return m
}

func roundExplain(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = round(v, 6)
	}
	return out
}

// round rounds half away from zero at places decimals. Non-finite values,
// which JSON cannot carry, become 0.
func round(v float64, places int32) float64 {
	if !calculator.Finite(v) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
