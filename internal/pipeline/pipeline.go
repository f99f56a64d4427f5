// Package pipeline runs one end-to-end pass: collect bars, derive features,
// backtest the configured rule and optionally announce the next signal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"QuantSuperior/internal/backtest"
	"QuantSuperior/internal/calculator"
	"QuantSuperior/internal/collector"
	"QuantSuperior/internal/features"
	"QuantSuperior/internal/metrics"
	"QuantSuperior/internal/model"
	"QuantSuperior/internal/notifier"
	"QuantSuperior/internal/recorder"
	"QuantSuperior/internal/strategy"
	"QuantSuperior/internal/trace"
)

// ErrSource marks a failure to obtain market data.
var ErrSource = errors.New("market data source")

// BarSource yields aligned daily bars for a symbol.
type BarSource interface {
	Collect(ctx context.Context, symbol, period string) ([]model.Bar, error)
}

// Options are the defaults a request falls back to.
type Options struct {
	SourceName     string
	Symbol         string
	Period         string
	Limit          int
	CostBpsPerSide float64
	Strategy       strategy.Params
	Features       features.Config
}

// Request asks for one run. Zero fields take the service defaults.
type Request struct {
	Symbol  string
	Period  string
	Limit   int
	CostBps *float64
	Notify  bool
	Trigger string // metrics label: http, cron, command
}

// Report is the outcome of one run.
type Report struct {
	RunID       string
	Symbol      string
	Period      string
	Source      string
	CostBps     float64
	Bars        []model.Bar
	Result      *backtest.Result
	Notified    []string
	GeneratedAt time.Time
}

// Service holds the collaborators of a run. Runs share nothing mutable
// except the notification check, which is serialized.
type Service struct {
	source    BarSource
	opts      Options
	recorder  recorder.Recorder
	notifiers []notifier.Notifier
	logger    *zap.Logger

	notifyMu sync.Mutex
}

func NewService(source BarSource, opts Options, rec recorder.Recorder, notifiers []notifier.Notifier, logger *zap.Logger) *Service {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, opts: opts, recorder: rec, notifiers: notifiers, logger: logger}
}

// Defaults returns the options requests fall back to.
func (s *Service) Defaults() Options {
	return s.opts
}

// Run executes req.
func (s *Service) Run(ctx context.Context, req Request) (report *Report, err error) {
	ctx, span := trace.StartSpan(ctx, "pipeline.Run")
	defer span.End()

	req = s.withDefaults(req)
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
		}
		metrics.RunsTotal.WithLabelValues(req.Trigger, outcome).Inc()
		metrics.RunDuration.WithLabelValues(req.Trigger).Observe(time.Since(start).Seconds())
	}()

	if err := validate(req); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID), zap.String("symbol", req.Symbol))

	bars, err := s.source.Collect(ctx, req.Symbol, req.Period)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSource, err)
	}

	res, err := s.backtest(ctx, bars, req.Limit, *req.CostBps)
	if err != nil {
		return nil, err
	}
	if len(bars) > req.Limit {
		bars = bars[len(bars)-req.Limit:]
	}

	report = &Report{
		RunID:       runID,
		Symbol:      req.Symbol,
		Period:      req.Period,
		Source:      s.opts.SourceName,
		CostBps:     *req.CostBps,
		Bars:        bars,
		Result:      res,
		GeneratedAt: time.Now().UTC(),
	}
	metrics.LastSignal.WithLabelValues(req.Symbol).Set(res.SignalNext.Signal.Multiplier())
	log.Info("run complete",
		zap.Int("bars", len(bars)),
		zap.Int("trades", res.Metrics.TotalTrades),
		zap.Float64("total_return_pct", res.Metrics.TotalReturnPct),
		zap.Stringer("signal_next", res.SignalNext.Signal),
		zap.String("signal_date", model.DateKey(res.SignalNext.Date)),
	)

	if req.Notify {
		report.Notified = s.notify(ctx, log, report)
	}
	return report, nil
}

// backtest derives features over every collected bar so the first row of
// the window keeps its gap and rolling statistics, then runs the rule over
// the last limit rows.
func (s *Service) backtest(ctx context.Context, bars []model.Bar, limit int, costBps float64) (*backtest.Result, error) {
	_, span := trace.StartSpan(ctx, "pipeline.Backtest")
	defer span.End()

	rows, err := features.Build(bars, s.opts.Features)
	if err != nil {
		return nil, fmt.Errorf("build features: %w", err)
	}
	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	rule, err := strategy.New(s.opts.Strategy)
	if err != nil {
		return nil, err
	}
	res, err := backtest.Run(rows, backtest.Config{CostBpsPerSide: costBps, Rule: rule})
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	return res, nil
}

// notify announces a non-flat next signal once per symbol, date and side.
func (s *Service) notify(ctx context.Context, log *zap.Logger, report *Report) []string {
	next := report.Result.SignalNext
	if next.Signal == model.Flat || len(s.notifiers) == 0 {
		return nil
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	done, err := s.recorder.Notified(report.Symbol, next.Date, next.Signal)
	if err != nil {
		log.Warn("signal log lookup failed, sending anyway", zap.Error(err))
	}
	if done {
		log.Info("signal already announced", zap.Stringer("signal", next.Signal))
		return nil
	}

	msg := notifier.FormatSignal(report.Symbol, next, report.Result.Metrics)
	sent := notifier.Broadcast(ctx, s.notifiers, msg, log)
	if len(sent) == 0 {
		return nil
	}
	if err := s.recorder.RecordSignal(&recorder.SignalEvent{
		RunID:      report.RunID,
		Symbol:     report.Symbol,
		SignalDate: next.Date,
		Signal:     next.Signal,
		Reason:     next.Reason,
		Channels:   sent,
		SentAt:     time.Now(),
	}); err != nil {
		log.Error("record signal", zap.Error(err))
	}
	return sent
}

func (s *Service) withDefaults(req Request) Request {
	if req.Symbol == "" {
		req.Symbol = s.opts.Symbol
	}
	if req.Period == "" {
		req.Period = s.opts.Period
	}
	if req.Limit == 0 {
		req.Limit = s.opts.Limit
	}
	if req.CostBps == nil {
		c := s.opts.CostBpsPerSide
		req.CostBps = &c
	}
	if req.Trigger == "" {
		req.Trigger = "manual"
	}
	return req
}

func validate(req Request) error {
	if req.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", model.ErrConfiguration)
	}
	if !collector.ValidPeriod(req.Period) {
		return fmt.Errorf("%w: unknown period %q", model.ErrConfiguration, req.Period)
	}
	if req.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", model.ErrConfiguration, req.Limit)
	}
	if c := *req.CostBps; !calculator.Finite(c) || c < 0 {
		return fmt.Errorf("%w: cost_bps must be a non-negative number, got %v", model.ErrConfiguration, c)
	}
	return nil
}
