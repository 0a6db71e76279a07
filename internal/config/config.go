package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"TrendBands/internal/model"
	"TrendBands/internal/quantile"
)

// Seed is an informed starting point for a loglinear quantile fit.
type Seed struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		BaseURL    string   `yaml:"base_url"`
		APIKey     string   `yaml:"api_key"`
		Symbol     string   `yaml:"symbol"`
		Currencies []string `yaml:"currencies"`
	} `yaml:"data_source"`
	Fit struct {
		Model        string          `yaml:"model"`
		Quantiles    []float64       `yaml:"quantiles"`
		Iterations   int             `yaml:"iterations"`
		LearningRate float64         `yaml:"learning_rate"`
		Refine       *bool           `yaml:"refine"`
		Cutover      string          `yaml:"cutover"`
		Seeds        map[string]Seed `yaml:"seeds"`
	} `yaml:"fit"`
	Indicators struct {
		MAWindows []int `yaml:"ma_windows"`
	} `yaml:"indicators"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Storage struct {
		CSVPath string `yaml:"csv_path"`
	} `yaml:"storage"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// DefaultPowerLawIterations is used when the powerlaw model is selected and
// no iteration count is configured.
const DefaultPowerLawIterations = 8000

// Load reads .env and the YAML config file, then applies environment
// variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("PRICE_FEED_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("PRICE_FEED_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("BANDS_CSV_PATH"); v != "" {
		cfg.Storage.CSVPath = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("BANDS_MODEL"); v != "" {
		cfg.Fit.Model = v
	}
	if v := os.Getenv("BANDS_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Fit.Iterations = n
		}
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Symbol == "" {
		c.DataSource.Symbol = "BTC"
	}
	if len(c.DataSource.Currencies) == 0 {
		c.DataSource.Currencies = []string{"usd", "eur"}
	}
	for i, cur := range c.DataSource.Currencies {
		c.DataSource.Currencies[i] = strings.ToLower(strings.TrimSpace(cur))
	}
	if c.Fit.Model == "" {
		c.Fit.Model = quantile.ModelLogLinear
	}
	if len(c.Fit.Quantiles) == 0 {
		c.Fit.Quantiles = []float64{0.01, 0.5, 0.99}
	}
	if c.Fit.Iterations == 0 {
		c.Fit.Iterations = quantile.DefaultOptions().Iterations
		if c.Fit.Model == quantile.ModelPowerLaw {
			c.Fit.Iterations = DefaultPowerLawIterations
		}
	}
	if c.Fit.LearningRate == 0 {
		c.Fit.LearningRate = quantile.DefaultOptions().LearningRate
	}
	if c.Fit.Refine == nil {
		refine := true
		c.Fit.Refine = &refine
	}
	if c.Fit.Cutover == "" {
		c.Fit.Cutover = "2010-07-18"
	}
	if len(c.Indicators.MAWindows) == 0 {
		c.Indicators.MAWindows = []int{50, 200, 1400}
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 30 0 * * *"
	}
	if c.Storage.CSVPath == "" {
		c.Storage.CSVPath = "data/bands.csv"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/bands.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the fitting and storage settings.
func (c *Config) Validate() error {
	if len(c.DataSource.Currencies) == 0 {
		return fmt.Errorf("data_source.currencies must not be empty")
	}
	if c.Fit.Model != quantile.ModelLogLinear && c.Fit.Model != quantile.ModelPowerLaw {
		return fmt.Errorf("fit.model must be %q or %q, got %q", quantile.ModelLogLinear, quantile.ModelPowerLaw, c.Fit.Model)
	}
	if len(c.Fit.Quantiles) == 0 {
		return fmt.Errorf("fit.quantiles must not be empty")
	}
	columns := make(map[string]float64, len(c.Fit.Quantiles))
	for _, q := range c.Fit.Quantiles {
		if q <= 0 || q >= 1 {
			return fmt.Errorf("fit.quantiles: %v is outside (0,1)", q)
		}
		col := model.BandColumn(q, "")
		if prev, ok := columns[col]; ok {
			return fmt.Errorf("fit.quantiles: %v and %v share column %s", prev, q, col)
		}
		columns[col] = q
	}
	if c.Fit.Iterations <= 0 {
		return fmt.Errorf("fit.iterations must be positive")
	}
	if c.Fit.LearningRate <= 0 {
		return fmt.Errorf("fit.learning_rate must be positive")
	}
	if _, err := c.CutoverDate(); err != nil {
		return err
	}
	if _, err := c.SeedMap(); err != nil {
		return err
	}
	for _, w := range c.Indicators.MAWindows {
		if w <= 0 {
			return fmt.Errorf("indicators.ma_windows: %d is not positive", w)
		}
	}
	return nil
}

// ValidateNotifier checks the settings required to send Telegram reports.
func (c *Config) ValidateNotifier() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}

// CutoverDate parses fit.cutover. "none" disables the cutover.
func (c *Config) CutoverDate() (time.Time, error) {
	if c.Fit.Cutover == "none" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, c.Fit.Cutover)
	if err != nil {
		return time.Time{}, fmt.Errorf("fit.cutover: %w", err)
	}
	return t, nil
}

// SeedMap converts fit.seeds into loglinear starting points keyed by quantile.
func (c *Config) SeedMap() (map[float64]quantile.LogLinear, error) {
	if len(c.Fit.Seeds) == 0 {
		return nil, nil
	}
	seeds := make(map[float64]quantile.LogLinear, len(c.Fit.Seeds))
	for k, s := range c.Fit.Seeds {
		tau, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return nil, fmt.Errorf("fit.seeds: key %q is not a quantile: %w", k, err)
		}
		seeds[tau] = quantile.LogLinear{Alpha: s.Alpha, Beta: s.Beta}
	}
	return seeds, nil
}

// Options returns the optimizer settings.
func (c *Config) Options() quantile.Options {
	return quantile.Options{
		Iterations:   c.Fit.Iterations,
		LearningRate: c.Fit.LearningRate,
	}
}

// NewFitter builds the configured fitter.
func (c *Config) NewFitter() (quantile.Fitter, error) {
	seeds, err := c.SeedMap()
	if err != nil {
		return nil, err
	}
	return quantile.NewFitter(c.Fit.Model, c.Options(), *c.Fit.Refine, seeds)
}
