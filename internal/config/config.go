package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"polydelta/internal/analysis"
	"polydelta/internal/fees"
	"polydelta/internal/positions"
)

// Defaults for configuration values.
const (
	DefaultPort              = "8080"
	DefaultDBPath            = "/data/positions.db"
	DefaultPollInterval      = 60 * time.Second
	DefaultCacheTTL          = 60 * time.Second
	DefaultAlertCooldown     = 30 * time.Minute
	DefaultCleanupInterval   = 10 * time.Minute
	DefaultBankroll          = 1000.0
	DefaultInvestment        = 100.0
	DefaultChatRatePerMin    = 10
	DefaultOpenRouterModel   = "openai/gpt-4o-mini"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultKellyTestInvested = 100.0
)

// DefaultSports are the sport_type values the scraper writes.
var DefaultSports = []string{"nba", "epl", "ucl", "world_cup"}

// Config holds all application configuration.
type Config struct {
	DatabaseURL  string        `yaml:"database_url"`
	RedisAddr    string        `yaml:"redis_addr"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	DBPath       string        `yaml:"db_path"`
	Port         string        `yaml:"port"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Sports       []string      `yaml:"sports"`

	// Analysis policy
	EVThreshold         float64 `yaml:"ev_threshold"` // percent
	KellyConservative   float64 `yaml:"kelly_conservative"`
	KellyAggressive     float64 `yaml:"kelly_aggressive"`
	KellyMaxStake       float64 `yaml:"kelly_max_stake"`
	KellyTestInvestment float64 `yaml:"kelly_test_investment"`
	TakeProfitROI       float64 `yaml:"take_profit_roi"`

	// Fees
	GasCost  float64 `yaml:"gas_cost"`
	TakerFee float64 `yaml:"taker_fee"`
	MakerFee float64 `yaml:"maker_fee"`

	// Calculator defaults
	DefaultBankroll   float64 `yaml:"default_bankroll"`
	DefaultInvestment float64 `yaml:"default_investment"`

	AlertCooldown time.Duration `yaml:"alert_cooldown"`

	// Chat assistant
	OpenRouterAPIKey string `yaml:"openrouter_api_key"`
	OpenRouterModel  string `yaml:"openrouter_model"`
	ChatRatePerMin   int    `yaml:"chat_rate_per_min"`

	CORSOrigins []string `yaml:"cors_origins"`
	CLOBBase    string   `yaml:"clob_base"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	kelly := analysis.DefaultKellyPolicy()
	return Config{
		CacheTTL:            DefaultCacheTTL,
		DBPath:              DefaultDBPath,
		Port:                DefaultPort,
		PollInterval:        DefaultPollInterval,
		Sports:              append([]string(nil), DefaultSports...),
		EVThreshold:         analysis.DefaultValueBetThreshold,
		KellyConservative:   kelly.Conservative,
		KellyAggressive:     kelly.Aggressive,
		KellyMaxStake:       kelly.MaxStakeFraction,
		KellyTestInvestment: DefaultKellyTestInvested,
		TakeProfitROI:       positions.DefaultTakeProfitROI,
		GasCost:             fees.DefaultGas,
		TakerFee:            0.02,
		MakerFee:            0,
		DefaultBankroll:     DefaultBankroll,
		DefaultInvestment:   DefaultInvestment,
		AlertCooldown:       DefaultAlertCooldown,
		OpenRouterModel:     DefaultOpenRouterModel,
		ChatRatePerMin:      DefaultChatRatePerMin,
		CORSOrigins:         []string{"*"},
		LogLevel:            DefaultLogLevel,
		LogFormat:           DefaultLogFormat,
	}
}

// Load reads configuration from environment variables (and .env file if present).
func Load() Config {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg := Defaults()
	applyEnvOverrides(&cfg)
	return cfg
}

// LoadFile reads a YAML file over the defaults, then applies the same
// environment overrides as Load.
func LoadFile(path string) (Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config.LoadFile: read %q: %w", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config.LoadFile: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	envString("DATABASE_URL", &cfg.DatabaseURL)
	envString("REDIS_ADDR", &cfg.RedisAddr)
	envString("DB_PATH", &cfg.DBPath)
	envString("PORT", &cfg.Port)
	envString("OPENROUTER_API_KEY", &cfg.OpenRouterAPIKey)
	envString("OPENROUTER_MODEL", &cfg.OpenRouterModel)
	envString("CLOB_BASE", &cfg.CLOBBase)
	envString("LOG_LEVEL", &cfg.LogLevel)
	envString("LOG_FORMAT", &cfg.LogFormat)

	envList("SPORTS", &cfg.Sports)
	envList("CORS_ORIGINS", &cfg.CORSOrigins)

	envDuration("CACHE_TTL_SEC", time.Second, &cfg.CacheTTL)
	envDuration("POLL_INTERVAL_MS", time.Millisecond, &cfg.PollInterval)
	envDuration("ALERT_COOLDOWN_SEC", time.Second, &cfg.AlertCooldown)

	envFloat("EV_THRESHOLD", &cfg.EVThreshold)
	envFloat("KELLY_CONSERVATIVE", &cfg.KellyConservative)
	envFloat("KELLY_AGGRESSIVE", &cfg.KellyAggressive)
	envFloat("KELLY_MAX_STAKE", &cfg.KellyMaxStake)
	envFloat("KELLY_TEST_INVESTMENT", &cfg.KellyTestInvestment)
	envFloat("TAKE_PROFIT_ROI", &cfg.TakeProfitROI)
	envFloat("GAS_COST", &cfg.GasCost)
	envFloat("TAKER_FEE", &cfg.TakerFee)
	envFloat("MAKER_FEE", &cfg.MakerFee)
	envFloat("DEFAULT_BANKROLL", &cfg.DefaultBankroll)
	envFloat("DEFAULT_INVESTMENT", &cfg.DefaultInvestment)

	if v := os.Getenv("CHAT_RATE_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ChatRatePerMin = n
		}
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(key string, unit time.Duration, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(n) * unit
		}
	}
}

func envList(key string, dst *[]string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

// Validate checks that configuration values are within acceptable ranges.
func Validate(cfg Config) error {
	if cfg.EVThreshold < 0 || cfg.EVThreshold > 100 {
		return fmt.Errorf("EV_THRESHOLD must be between 0 and 100 (percent), got %f", cfg.EVThreshold)
	}
	if cfg.KellyConservative <= 0 || cfg.KellyConservative > 1 {
		return fmt.Errorf("KELLY_CONSERVATIVE must be between 0 and 1, got %f", cfg.KellyConservative)
	}
	if cfg.KellyAggressive <= 0 || cfg.KellyAggressive > 1 {
		return fmt.Errorf("KELLY_AGGRESSIVE must be between 0 and 1, got %f", cfg.KellyAggressive)
	}
	if cfg.KellyMaxStake <= 0 || cfg.KellyMaxStake > 1 {
		return fmt.Errorf("KELLY_MAX_STAKE must be between 0 and 1, got %f", cfg.KellyMaxStake)
	}
	if cfg.KellyTestInvestment <= cfg.GasCost {
		return fmt.Errorf("KELLY_TEST_INVESTMENT must exceed GAS_COST, got %f", cfg.KellyTestInvestment)
	}
	if cfg.GasCost < 0 {
		return fmt.Errorf("GAS_COST must be non-negative, got %f", cfg.GasCost)
	}
	if cfg.TakerFee < 0 || cfg.TakerFee >= 1 {
		return fmt.Errorf("TAKER_FEE must be in [0, 1), got %f", cfg.TakerFee)
	}
	if cfg.MakerFee < 0 || cfg.MakerFee >= 1 {
		return fmt.Errorf("MAKER_FEE must be in [0, 1), got %f", cfg.MakerFee)
	}
	if cfg.DefaultBankroll < 0 {
		return fmt.Errorf("DEFAULT_BANKROLL must be non-negative, got %f", cfg.DefaultBankroll)
	}
	if cfg.DefaultInvestment <= 0 {
		return fmt.Errorf("DEFAULT_INVESTMENT must be positive, got %f", cfg.DefaultInvestment)
	}
	if cfg.PollInterval < time.Second {
		return fmt.Errorf("POLL_INTERVAL_MS must be at least 1000ms, got %v", cfg.PollInterval)
	}
	if cfg.ChatRatePerMin < 0 {
		return fmt.Errorf("CHAT_RATE_PER_MIN must be non-negative, got %d", cfg.ChatRatePerMin)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	return nil
}

// ValueBetPolicy returns the EV detection policy.
func (c Config) ValueBetPolicy() analysis.Policy {
	return analysis.Policy{ValueBetThreshold: c.EVThreshold}
}

// KellyPolicy returns the sizing constants.
func (c Config) KellyPolicy() analysis.KellyPolicy {
	return analysis.KellyPolicy{
		Conservative:     c.KellyConservative,
		Aggressive:       c.KellyAggressive,
		MaxStakeFraction: c.KellyMaxStake,
		TestInvestment:   c.KellyTestInvestment,
	}
}

// Rates returns the configured proportional fee schedule.
func (c Config) Rates() fees.Rates {
	return fees.Rates{Taker: c.TakerFee, Maker: c.MakerFee}
}

// Fee returns the fee model for an order type using the configured gas.
func (c Config) Fee(t fees.OrderType) fees.Model {
	return c.Rates().ForOrder(t, c.GasCost)
}
