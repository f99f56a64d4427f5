package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"QuantSuperior/internal/collector"
	"QuantSuperior/internal/config"
	"QuantSuperior/internal/logging"
	"QuantSuperior/internal/notifier"
	"QuantSuperior/internal/pipeline"
	"QuantSuperior/internal/recorder"
	"QuantSuperior/internal/scheduler"
	"QuantSuperior/internal/server"
	"QuantSuperior/internal/trace"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.App.LogLevel)
	defer logger.Sync()
	logger.Info("starting", zap.String("app", cfg.App.Name), zap.String("version", cfg.App.Version))

	if err := trace.Init(cfg.Tracing.Enabled, cfg.App.Version); err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case config.ProviderREST:
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case config.ProviderMock:
		fetcher = &collector.MockFetcher{Price: 34000}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	logger.Info("data source", zap.String("provider", fetcher.Name()))

	col := collector.NewCollector(fetcher, cfg.DataSource.BenchmarkSymbol, cfg.DataSource.VolIndexSymbol, logger)

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	// Init notifiers
	var notifiers []notifier.Notifier
	if e := cfg.Notify.Email; e.Enabled {
		notifiers = append(notifiers, notifier.NewEmailNotifier(e.SMTPHost, e.SMTPPort, e.Sender, e.Password, e.Recipient))
	}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID, cfg.Proxy, logger)
		notifiers = append(notifiers, tn)
	}

	svc := pipeline.NewService(col, pipeline.Options{
		SourceName:     fetcher.Name(),
		Symbol:         cfg.DataSource.Symbol,
		Period:         cfg.DataSource.Period,
		Limit:          cfg.DataSource.Limit,
		CostBpsPerSide: cfg.Strategy.CostBpsPerSide,
		Strategy:       cfg.Strategy.Params,
		Features:       cfg.Strategy.Features,
	}, rec, notifiers, logger)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("resolve timezone", zap.Error(err))
	}
	sched := scheduler.NewScheduler(ctx, svc, loc, cfg.RequestTimeout(), logger)
	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		logger.Fatal("register cron task", zap.Error(err))
	}
	sched.Start()

	if tn != nil && cfg.Notify.Telegram.Polling {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info("telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		logger.Info("run_on_start enabled, executing daily task now")
		go sched.RunNow()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.New(svc, cfg.App.Name, cfg.RequestTimeout(), logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, stopping")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}
	sched.Stop()
	if err := trace.Shutdown(shutdownCtx); err != nil {
		logger.Error("trace shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}
