package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"QuantSuperior/internal/model"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func ohlcv(d int, c float64) model.OHLCV {
	return model.OHLCV{Time: day(d), Open: c, High: c, Low: c, Close: c, Volume: 100}
}

// 2024-01-02..05 09:00 Milan, gmtoffset 3600. The 4th has a null close and
// the 5th is printed twice.
const yahooFixture = `{"chart":{"result":[{
  "meta":{"gmtoffset":3600},
  "timestamp":[1704182400,1704268800,1704355200,1704441600,1704445200],
  "indicators":{"quote":[{
    "open":[100,101,102,103,103.5],
    "high":[101,102,103,104,104.5],
    "low":[99,100,101,102,102.5],
    "close":[100.5,101.5,null,103.5,104],
    "volume":[1000,null,1200,1300,1400]
  }]}
}],"error":null}}`

func TestYahooFetcher_FetchDailyBars(t *testing.T) {
	var gotPath, gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		_, _ = w.Write([]byte(yahooFixture))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	bars, err := f.FetchDailyBars(context.Background(), "FTSEMIB", "1y")
	require.NoError(t, err)

	assert.Equal(t, "/FTSEMIB.MI", gotPath)
	assert.Equal(t, "1y", gotRange)
	require.Len(t, bars, 3)
	assert.Equal(t, "2024-01-02", model.DateKey(bars[0].Time))
	assert.Equal(t, "2024-01-03", model.DateKey(bars[1].Time))
	assert.Equal(t, 0.0, bars[1].Volume, "null volume reads as zero")
	assert.Equal(t, "2024-01-05", model.DateKey(bars[2].Time))
	assert.Equal(t, 104.0, bars[2].Close, "later print wins")
}

func TestYahooFetcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("range") == "6mo" {
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	_, err := f.FetchDailyBars(context.Background(), "SPY", "6mo")
	assert.ErrorContains(t, err, "No data found")

	_, err = f.FetchDailyBars(context.Background(), "SPY", "1y")
	assert.ErrorContains(t, err, "status 429")

	_, err = f.FetchDailyBars(context.Background(), "SPY", "7w")
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestRESTFetcher_FetchDailyBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bars/daily", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "SPY", r.URL.Query().Get("symbol"))
		assert.Equal(t, "183", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[
			{"timestamp":1704240000,"open":2,"high":2,"low":2,"close":2,"volume":5},
			{"timestamp":1704153600,"open":1,"high":1,"low":1,"close":1,"volume":5}
		]`))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "")
	bars, err := f.FetchDailyBars(context.Background(), "SPY", "6mo")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1.0, bars[0].Close)
	assert.Equal(t, "2024-01-02", model.DateKey(bars[0].Time))
}

func TestMerge(t *testing.T) {
	index := []model.OHLCV{ohlcv(3, 30), ohlcv(2, 20), ohlcv(4, 40), ohlcv(4, 41)}
	bench := map[string]float64{"2024-01-02": 200, "2024-01-04": 400}
	vix := map[string]float64{"2024-01-03": 13}

	bars := Merge(index, bench, vix)
	require.Len(t, bars, 3)

	assert.Equal(t, day(2), bars[0].Date)
	require.NotNil(t, bars[0].BenchmarkClose)
	assert.Equal(t, 200.0, *bars[0].BenchmarkClose)
	assert.Nil(t, bars[0].VolIndexClose)

	assert.Nil(t, bars[1].BenchmarkClose)
	require.NotNil(t, bars[1].VolIndexClose)
	assert.Equal(t, 13.0, *bars[1].VolIndexClose)

	assert.Equal(t, 41.0, bars[2].Close)
}

func TestCollector_Collect(t *testing.T) {
	tests := []struct {
		name      string
		fetcher   *MockFetcher
		wantBars  int
		wantBench bool
		wantErr   error
	}{
		{
			name: "all series",
			fetcher: &MockFetcher{Series: map[string][]model.OHLCV{
				"FTSEMIB.MI": {ohlcv(2, 1), ohlcv(3, 2)},
				"SPY":        {ohlcv(2, 10), ohlcv(3, 11)},
				"^VIX":       {ohlcv(3, 15)},
			}},
			wantBars:  2,
			wantBench: true,
		},
		{
			name: "benchmark failure is tolerated",
			fetcher: &MockFetcher{
				Series: map[string][]model.OHLCV{"FTSEMIB.MI": {ohlcv(2, 1)}, "^VIX": {}},
				Errors: map[string]error{"SPY": errors.New("boom")},
			},
			wantBars: 1,
		},
		{
			name: "index failure is fatal",
			fetcher: &MockFetcher{
				Errors: map[string]error{"FTSEMIB.MI": errors.New("down")},
			},
		},
		{
			name:    "empty index",
			fetcher: &MockFetcher{Series: map[string][]model.OHLCV{"FTSEMIB.MI": {}}},
			wantErr: model.ErrInsufficientData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(tt.fetcher, "SPY", "^VIX", zap.NewNop())
			bars, err := c.Collect(context.Background(), "FTSEMIB.MI", "1y")
			if tt.wantBars == 0 {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			require.Len(t, bars, tt.wantBars)
			assert.Equal(t, tt.wantBench, bars[0].BenchmarkClose != nil)
		})
	}
}

func TestCollector_SkipsUnsetAuxiliary(t *testing.T) {
	m := &MockFetcher{Price: 100}
	c := NewCollector(m, "", "", nil)
	bars, err := c.Collect(context.Background(), "FTSEMIB.MI", "1mo")
	require.NoError(t, err)
	assert.NotEmpty(t, bars)
	assert.Equal(t, []string{"FTSEMIB.MI"}, m.Calls)
}
