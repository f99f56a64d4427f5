package backtest

import (
	"math"

	"QuantSuperior/internal/calculator"
	"QuantSuperior/internal/model"
)

const tradingDaysPerYear = 252

// computeMetrics rolls up trade statistics and reads drawdown, Sharpe and
// CAGR off the equity curve. Open trades are counted but not scored.
func computeMetrics(trades []model.Trade, equity []model.EquityPoint, positions []model.Position) model.Metrics {
	var m model.Metrics

	var wins int
	var sumRet, sumPts float64
	for _, t := range trades {
		if t.Open {
			m.OpenTrades++
			continue
		}
		m.TotalTrades++
		if t.Return > 0 {
			wins++
		}
		sumRet += t.Return
		sumPts += t.PnLPoints
	}
	if m.TotalTrades > 0 {
		n := float64(m.TotalTrades)
		m.WinRate = float64(wins) / n
		m.AvgTradePct = sumRet / n * 100
		m.AvgPoints = sumPts / n
	}

	if len(equity) == 0 {
		return m
	}
	final := equity[len(equity)-1].Value
	m.CumulativeReturn = final - 1
	m.TotalReturnPct = m.CumulativeReturn * 100
	m.MaxDrawdown = maxDrawdown(equity)
	m.Sharpe = sharpe(equity)
	m.CAGR = cagr(equity)
	m.Exposure = exposure(positions)
	return m
}

// maxDrawdown is the largest peak-to-trough fall as a fraction of the peak.
func maxDrawdown(equity []model.EquityPoint) float64 {
	peak := equity[0].Value
	maxDD := 0.0
	for _, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.Value) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// sharpe annualizes the mean over the sample deviation of daily equity returns.
func sharpe(equity []model.EquityPoint) float64 {
	if len(equity) < 3 {
		return 0
	}
	rets := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		rets = append(rets, calculator.Ratio(equity[i].Value, equity[i-1].Value))
	}
	std := calculator.StdDev(rets)
	if std == 0 || !calculator.Finite(std) {
		return 0
	}
	return calculator.Mean(rets) / std * math.Sqrt(tradingDaysPerYear)
}

func cagr(equity []model.EquityPoint) float64 {
	first, last := equity[0], equity[len(equity)-1]
	years := last.Date.Sub(first.Date).Hours() / 24 / 365.25
	if years <= 0 || last.Value <= 0 || first.Value <= 0 {
		return 0
	}
	g := math.Pow(last.Value/first.Value, 1/years) - 1
	if !calculator.Finite(g) {
		return 0
	}
	return g
}

// exposure is the fraction of days, after the first, spent in the market.
func exposure(positions []model.Position) float64 {
	if len(positions) < 2 {
		return 0
	}
	in := 0
	for _, p := range positions[1:] {
		if p != model.Flat {
			in++
		}
	}
	return float64(in) / float64(len(positions)-1)
}
