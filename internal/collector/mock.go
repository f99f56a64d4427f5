package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"QuantSuperior/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without a series get a generated drift around Price.
type MockFetcher struct {
	Price  float64
	Series map[string][]model.OHLCV
	Errors map[string]error
	Calls  []string

	mu sync.Mutex
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol, period string) ([]model.OHLCV, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, symbol)
	m.mu.Unlock()
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Series[symbol]; ok {
		return bars, nil
	}
	days, ok := Periods[period]
	if !ok {
		return nil, fmt.Errorf("%w: unknown period %q", model.ErrConfiguration, period)
	}
	if days == 0 {
		days = 3653
	}
	// Roughly five trading days in seven.
	return generateMockBars(m.Price, days*5/7), nil
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	end := time.Now().UTC().Truncate(24 * time.Hour)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   end.AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000 + float64(i%7)*50000,
		}
	}
	return bars
}
