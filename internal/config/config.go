package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"QuantSuperior/internal/backtest"
	"QuantSuperior/internal/collector"
	"QuantSuperior/internal/features"
	"QuantSuperior/internal/model"
	"QuantSuperior/internal/strategy"
)

// Data providers accepted in data_source.provider.
const (
	ProviderYahoo = "yahoo"
	ProviderREST  = "rest"
	ProviderMock  = "mock"
)

// Config holds all application configuration.
type Config struct {
	App struct {
		Name     string `yaml:"name"`
		Version  string `yaml:"version"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`
	Server struct {
		Port              int `yaml:"port"`
		RequestTimeoutSec int `yaml:"request_timeout_sec"`
	} `yaml:"server"`
	DataSource struct {
		Provider        string `yaml:"provider"`
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		Symbol          string `yaml:"symbol"`
		BenchmarkSymbol string `yaml:"benchmark_symbol"`
		VolIndexSymbol  string `yaml:"vol_index_symbol"`
		Period          string `yaml:"period"`
		Limit           int    `yaml:"limit"`
	} `yaml:"data_source"`
	Strategy struct {
		strategy.Params `yaml:",inline"`
		CostBpsPerSide  float64         `yaml:"cost_bps_per_side"`
		Features        features.Config `yaml:"features"`
	} `yaml:"strategy"`
	Schedule struct {
		DailyCron  string `yaml:"daily_cron"`
		Timezone   string `yaml:"timezone"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Notify struct {
		Email struct {
			Enabled   bool   `yaml:"enabled"`
			SMTPHost  string `yaml:"smtp_host"`
			SMTPPort  int    `yaml:"smtp_port"`
			Sender    string `yaml:"sender"`
			Password  string `yaml:"password"`
			Recipient string `yaml:"recipient"`
		} `yaml:"email"`
		Telegram struct {
			BotToken string `yaml:"bot_token"`
			ChatID   string `yaml:"chat_id"`
			Polling  bool   `yaml:"polling"`
		} `yaml:"telegram"`
	} `yaml:"notify"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Tracing struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"tracing"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Nested strategy thresholds are seeded so a file can override one band
	// without restating the rest.
	cfg.Strategy.Params = strategy.DefaultParams()
	cfg.Strategy.Features = features.DefaultConfig()
	cfg.Strategy.CostBpsPerSide = backtest.DefaultCostBpsPerSide

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("LOG_LEVEL", &c.App.LogLevel)
	str("DATA_PROVIDER", &c.DataSource.Provider)
	str("VSTRADER_BASE_URL", &c.DataSource.BaseURL)
	str("VSTRADER_API_KEY", &c.DataSource.APIKey)
	str("SENDER_EMAIL", &c.Notify.Email.Sender)
	str("SENDER_PASSWORD", &c.Notify.Email.Password)
	str("RECIPIENT_EMAIL", &c.Notify.Email.Recipient)
	str("SMTP_HOST", &c.Notify.Email.SMTPHost)
	str("TELEGRAM_BOT_TOKEN", &c.Notify.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &c.Notify.Telegram.ChatID)
	str("HTTPS_PROXY", &c.Proxy)
	str("SQLITE_PATH", &c.Database.SQLitePath)
	str("CRON_DAILY", &c.Schedule.DailyCron)

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q: %v", model.ErrConfiguration, v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: SMTP_PORT=%q: %v", model.ErrConfiguration, v, err)
		}
		c.Notify.Email.SMTPPort = port
	}
	if v := os.Getenv("COST_BPS"); v != "" {
		bps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: COST_BPS=%q: %v", model.ErrConfiguration, v, err)
		}
		c.Strategy.CostBpsPerSide = bps
	}
	if v := os.Getenv("SEND_EMAIL"); v != "" {
		c.Notify.Email.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		c.Tracing.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		c.Schedule.RunOnStart = strings.EqualFold(v, "true")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "FTSEMIB Quant Superior"
	}
	if c.App.Version == "" {
		c.App.Version = "1.0.0"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.RequestTimeoutSec == 0 {
		c.Server.RequestTimeoutSec = 60
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = ProviderYahoo
	}
	if c.DataSource.Symbol == "" {
		c.DataSource.Symbol = "FTSEMIB.MI"
	}
	if c.DataSource.BenchmarkSymbol == "" {
		c.DataSource.BenchmarkSymbol = "SPY"
	}
	if c.DataSource.VolIndexSymbol == "" {
		c.DataSource.VolIndexSymbol = "^VIX"
	}
	if c.DataSource.Period == "" {
		c.DataSource.Period = "1y"
	}
	if c.DataSource.Limit == 0 {
		c.DataSource.Limit = 1200
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 17 * * 1-5"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "Europe/Rome"
	}
	if c.Notify.Email.SMTPHost == "" {
		c.Notify.Email.SMTPHost = "smtp.gmail.com"
	}
	if c.Notify.Email.SMTPPort == 0 {
		c.Notify.Email.SMTPPort = 587
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/quant_superior.db"
	}
}

// Validate checks ranges and the fields each enabled feature needs.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", model.ErrConfiguration, c.Server.Port)
	}
	if c.Server.RequestTimeoutSec < 0 {
		return fmt.Errorf("%w: server.request_timeout_sec must be >= 0", model.ErrConfiguration)
	}
	switch c.DataSource.Provider {
	case ProviderYahoo, ProviderMock:
	case ProviderREST:
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("%w: data_source.base_url is required for the rest provider", model.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown data_source.provider %q", model.ErrConfiguration, c.DataSource.Provider)
	}
	if !collector.ValidPeriod(c.DataSource.Period) {
		return fmt.Errorf("%w: unknown data_source.period %q", model.ErrConfiguration, c.DataSource.Period)
	}
	if c.DataSource.Limit <= 0 {
		return fmt.Errorf("%w: data_source.limit must be positive", model.ErrConfiguration)
	}

	if err := c.Strategy.Features.Validate(); err != nil {
		return fmt.Errorf("strategy.features: %w", err)
	}
	rule, err := strategy.New(c.Strategy.Params)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if err := (backtest.Config{CostBpsPerSide: c.Strategy.CostBpsPerSide, Rule: rule}).Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := CronParser().Parse(c.Schedule.DailyCron); err != nil {
		return fmt.Errorf("%w: schedule.daily_cron %q: %v", model.ErrConfiguration, c.Schedule.DailyCron, err)
	}

	if e := c.Notify.Email; e.Enabled {
		if e.Sender == "" || e.Password == "" || e.Recipient == "" {
			return fmt.Errorf("%w: notify.email needs sender, password and recipient", model.ErrConfiguration)
		}
	}
	if (c.Notify.Telegram.BotToken == "") != (c.Notify.Telegram.ChatID == "") {
		return fmt.Errorf("%w: notify.telegram needs both bot_token and chat_id", model.ErrConfiguration)
	}
	return nil
}

// cronSpec is the six-field layout (with seconds) used by the scheduler.
const cronSpec = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow

// CronParser returns the parser matching schedule.daily_cron.
func CronParser() cron.Parser {
	return cron.NewParser(cronSpec)
}

// Location resolves schedule.timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule.timezone %q: %v", model.ErrConfiguration, c.Schedule.Timezone, err)
	}
	return loc, nil
}

// RequestTimeout is the per-request deadline, zero meaning none.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSec) * time.Second
}

// TelegramEnabled reports whether Telegram credentials are present.
func (c *Config) TelegramEnabled() bool {
	return c.Notify.Telegram.BotToken != "" && c.Notify.Telegram.ChatID != ""
}
