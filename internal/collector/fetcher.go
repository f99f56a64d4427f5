package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"QuantSuperior/internal/model"
)

// Fetcher downloads daily bars for one symbol. period is a lookback such
// as "6mo", "1y" or "max".
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol, period string) ([]model.OHLCV, error)
	Name() string
}

// Periods maps the lookbacks every fetcher understands to calendar days;
// 0 means the full history.
var Periods = map[string]int{
	"1mo": 31,
	"3mo": 92,
	"6mo": 183,
	"1y":  366,
	"2y":  731,
	"5y":  1827,
	"10y": 3653,
	"max": 0,
}

// ValidPeriod reports whether p is a known lookback.
func ValidPeriod(p string) bool {
	_, ok := Periods[p]
	return ok
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
