// Package scheduler runs the daily signal job and answers chat commands.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"QuantSuperior/internal/model"
	"QuantSuperior/internal/notifier"
	"QuantSuperior/internal/pipeline"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Report, error)
}

// Scheduler manages the cron task.
type Scheduler struct {
	Cron    *cron.Cron
	Runner  Runner
	Ctx     context.Context
	Timeout time.Duration
	logger  *zap.Logger
}

// NewScheduler creates a new Scheduler firing in loc.
func NewScheduler(ctx context.Context, runner Runner, loc *time.Location, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Runner:  runner,
		Ctx:     ctx,
		Timeout: timeout,
		logger:  logger,
	}
}

// Register adds the daily signal task.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow executes the daily task immediately (RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.dailyTask()
}

func (s *Scheduler) dailyTask() {
	s.logger.Info("running daily signal task")
	report, err := s.run(pipeline.Request{Notify: true, Trigger: "cron"})
	if err != nil {
		s.logger.Error("daily signal task", zap.Error(err))
		return
	}
	s.logger.Info("daily signal task done",
		zap.String("run_id", report.RunID),
		zap.Stringer("signal", report.Result.SignalNext.Signal),
		zap.Strings("notified", report.Notified),
	)
}

func (s *Scheduler) run(req pipeline.Request) (*pipeline.Report, error) {
	ctx := s.Ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.Runner.Run(ctx, req)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	req := pipeline.Request{Trigger: "command"}
	if len(fields) > 1 {
		req.Symbol = fields[1]
	}

	switch strings.ToLower(fields[0]) {
	case "/signal":
		report, err := s.run(req)
		if err != nil {
			return fmt.Sprintf("Run failed: %v", err)
		}
		next := report.Result.SignalNext
		msg := notifier.FormatSignal(report.Symbol, next, report.Result.Metrics)
		return msg.Subject + "\n\n" + msg.Body
	case "/metrics":
		report, err := s.run(req)
		if err != nil {
			return fmt.Sprintf("Run failed: %v", err)
		}
		return fmt.Sprintf("%s %s, %d bars to %s\n\n%s",
			report.Symbol, report.Period, len(report.Bars),
			model.DateKey(report.Result.SignalNext.Date), notifier.FormatMetrics(report.Result.Metrics))
	default:
		return "Commands:\n/signal [symbol] - next-day signal\n/metrics [symbol] - backtest summary\n/help - this message"
	}
}
