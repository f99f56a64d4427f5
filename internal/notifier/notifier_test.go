package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"QuantSuperior/internal/model"
)

func sampleSignal() model.SignalNext {
	return model.SignalNext{
		Date:   time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
		Signal: model.Long,
		Reason: "top3 pattern",
		Explain: map[string]float64{
			model.FeatureGap:     0.004,
			model.FeatureVolumeZ: -0.8,
			model.FeatureWeekday: 1,
		},
	}
}

func TestFormatSignal(t *testing.T) {
	msg := FormatSignal("FTSEMIB.MI", sampleSignal(), model.Metrics{TotalTrades: 12, WinRate: 0.5, TotalReturnPct: 7.25})

	assert.Equal(t, "[17:30 CET] Quant Superior Signal: LONG", msg.Subject)
	for _, want := range []string{
		"Symbol: FTSEMIB.MI",
		"Signal: LONG",
		"Signal date: 2024-05-06",
		"Reason: top3 pattern",
		"gap_open: +0.40%",
		"vol_z: -0.80",
		"dow: 1",
		"Trades: 12 closed, 0 open",
		"Win rate: 50.0%",
		"Total return: +7.25%",
	} {
		assert.Contains(t, msg.Body, want)
	}
	// Explain keys are sorted.
	assert.Less(t, strings.Index(msg.Body, "dow:"), strings.Index(msg.Body, "gap_open:"))
}

func TestEmailNotifier_Notify(t *testing.T) {
	e := NewEmailNotifier("smtp.example.com", 587, "bot@example.com", "pw", "me@example.com")
	var got *gomail.Message
	e.send = func(m *gomail.Message) error {
		got = m
		return nil
	}

	require.NoError(t, e.Notify(context.Background(), Message{Subject: "hello", Body: "body"}))
	require.NotNil(t, got)
	assert.Equal(t, []string{"hello"}, got.GetHeader("Subject"))
	assert.Equal(t, []string{"me@example.com"}, got.GetHeader("To"))
	assert.Equal(t, []string{"bot@example.com"}, got.GetHeader("From"))

	e.send = func(*gomail.Message) error { return errors.New("535 auth failed") }
	err := e.Notify(context.Background(), Message{Subject: "x"})
	assert.ErrorContains(t, err, "smtp smtp.example.com:587")
	assert.ErrorContains(t, err, "535 auth failed")
}

func TestTelegramNotifier_Notify(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("TOKEN", "42", "", zap.NewNop())
	tg.APIBase = srv.URL

	require.NoError(t, tg.Notify(context.Background(), Message{Subject: "Signal: LONG", Body: "gap <1%"}))
	assert.Equal(t, "42", payload["chat_id"])
	assert.Equal(t, "HTML", payload["parse_mode"])
	assert.Equal(t, "<b>Signal: LONG</b>\n\ngap &lt;1%", payload["text"])
}

func TestTelegramNotifier_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("T", "1", "", nil)
	tg.APIBase = srv.URL

	err := tg.SendWithRetry(context.Background(), "x", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 1 retries exhausted")
	assert.Contains(t, err.Error(), "status 502")
	assert.Equal(t, int32(1), calls.Load())
}

func TestTelegramNotifier_RetryStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("T", "1", "", nil)
	tg.APIBase = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := tg.SendWithRetry(ctx, "x", 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStartPolling(t *testing.T) {
	var replies []string
	var served atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if served.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"ok":true,"result":[
					{"update_id":7,"message":{"text":" /signal "}},
					{"update_id":8,"message":null}
				]}`))
				return
			}
			assert.Equal(t, "9", r.URL.Query().Get("offset"))
			cancel()
			_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var p map[string]string
			_ = json.NewDecoder(r.Body).Decode(&p)
			replies = append(replies, p["text"])
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("T", "1", "", nil)
	tg.APIBase = srv.URL

	tg.StartPolling(ctx, func(_ context.Context, cmd string) string {
		return "got " + cmd
	})
	assert.Equal(t, []string{"got /signal"}, replies)
}

type fakeNotifier struct {
	name string
	err  error
	msgs []Message
}

func (f *fakeNotifier) Name() string { return f.name }
func (f *fakeNotifier) Notify(_ context.Context, msg Message) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

func TestBroadcast(t *testing.T) {
	ok := &fakeNotifier{name: "email"}
	bad := &fakeNotifier{name: "telegram", err: errors.New("down")}

	sent := Broadcast(context.Background(), []Notifier{bad, ok}, Message{Subject: "s"}, nil)
	assert.Equal(t, []string{"email"}, sent)
	assert.Len(t, ok.msgs, 1)
	assert.Len(t, bad.msgs, 1)

	assert.Empty(t, Broadcast(context.Background(), nil, Message{}, zap.NewNop()))
}
