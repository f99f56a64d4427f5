package notifier

import (
	"fmt"
	"sort"
	"strings"

	"QuantSuperior/internal/model"
)

// FormatSignal renders the next-day signal and the backtest summary that
// backs it.
func FormatSignal(symbol string, next model.SignalNext, m model.Metrics) Message {
	var b strings.Builder

	b.WriteString("Trading Signal Alert - FTSEMIB Quant Superior\n\n")
	b.WriteString(fmt.Sprintf("Symbol: %s\n", symbol))
	b.WriteString(fmt.Sprintf("Signal: %s\n", next.Signal))
	b.WriteString(fmt.Sprintf("Signal date: %s (position taken at the close)\n", model.DateKey(next.Date)))
	if next.Reason != "" {
		b.WriteString(fmt.Sprintf("Reason: %s\n", next.Reason))
	}

	if len(next.Explain) > 0 {
		b.WriteString("\nInputs:\n")
		keys := make([]string, 0, len(next.Explain))
		for k := range next.Explain {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("  %s: %s\n", k, formatFeature(k, next.Explain[k])))
		}
	}

	b.WriteString("\n")
	b.WriteString(FormatMetrics(m))
	b.WriteString("\n" + strings.Repeat("=", 50))
	b.WriteString("\nSystem: FTSEMIB Quant Superior")
	b.WriteString("\nDo not reply to this email.\n")

	return Message{
		Subject: fmt.Sprintf("[17:30 CET] Quant Superior Signal: %s", next.Signal),
		Body:    b.String(),
	}
}

// FormatMetrics renders backtest metrics, one per line.
func FormatMetrics(m model.Metrics) string {
	var b strings.Builder
	b.WriteString("Backtest:\n")
	b.WriteString(fmt.Sprintf("  Trades: %d closed, %d open\n", m.TotalTrades, m.OpenTrades))
	b.WriteString(fmt.Sprintf("  Win rate: %.1f%%\n", m.WinRate*100))
	b.WriteString(fmt.Sprintf("  Avg trade: %+.3f%% (%+.1f pts)\n", m.AvgTradePct, m.AvgPoints))
	b.WriteString(fmt.Sprintf("  Total return: %+.2f%%\n", m.TotalReturnPct))
	b.WriteString(fmt.Sprintf("  Max drawdown: %.2f%%\n", m.MaxDrawdown*100))
	b.WriteString(fmt.Sprintf("  Sharpe: %.2f | CAGR: %+.2f%% | Exposure: %.1f%%\n", m.Sharpe, m.CAGR*100, m.Exposure*100))
	return b.String()
}

func formatFeature(name string, v float64) string {
	switch name {
	case model.FeatureVolumeZ, model.FeatureRSI:
		return fmt.Sprintf("%.2f", v)
	case model.FeatureWeekday:
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%+.2f%%", v*100)
}
