package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	OpenAI       OpenAIConfig       `mapstructure:"openai"`
	Verification VerificationConfig `mapstructure:"verification"`
	Isolation    IsolationConfig    `mapstructure:"isolation"`
	Receipt      ReceiptConfig      `mapstructure:"receipt"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// IsolationConfig holds the network controller webhook used to restore
// service after a customer's last invoice is settled.
type IsolationConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// OpenAIConfig holds vision model API configuration
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// VerificationConfig holds the amount-matching and recency tolerances used by
// the pipeline. The matcher and validator read from this one block so the
// tolerances cannot silently diverge.
type VerificationConfig struct {
	// ExactTolerance is the absolute rupiah tolerance for an exact match.
	ExactTolerance float64 `mapstructure:"exact_tolerance"`
	// ClosePct and CloseAbs bound a close match: within max(remaining*pct, abs).
	ClosePct float64 `mapstructure:"close_pct"`
	CloseAbs float64 `mapstructure:"close_abs"`
	// ConsistencyTolerance is the tight secondary check the validator applies
	// when comparing the extracted amount against the matched invoice.
	ConsistencyTolerance float64 `mapstructure:"consistency_tolerance"`
	// SettleTolerance is the rounding slack under which an invoice counts as
	// fully paid.
	SettleTolerance float64 `mapstructure:"settle_tolerance"`
	// FutureSkew is how far in the future a transfer date may sit before it
	// is rejected (clock drift allowance).
	FutureSkew time.Duration `mapstructure:"future_skew"`
	// OCRFallbackConfidence is the fixed confidence assigned to local OCR
	// extraction results.
	OCRFallbackConfidence float64 `mapstructure:"ocr_fallback_confidence"`
}

// ReceiptConfig holds payment receipt generation configuration
type ReceiptConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	CompanyName string `mapstructure:"company_name"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/payproof.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Vision model defaults
	viper.SetDefault("openai.model", "gpt-4o")
	viper.SetDefault("openai.temperature", 0.1)
	viper.SetDefault("openai.max_tokens", 2048)
	viper.SetDefault("openai.timeout", 15*time.Second)

	// Verification tolerances
	viper.SetDefault("verification.exact_tolerance", 500.0)
	viper.SetDefault("verification.close_pct", 0.01)
	viper.SetDefault("verification.close_abs", 5000.0)
	viper.SetDefault("verification.consistency_tolerance", 100.0)
	viper.SetDefault("verification.settle_tolerance", 100.0)
	viper.SetDefault("verification.future_skew", time.Hour)
	viper.SetDefault("verification.ocr_fallback_confidence", 55.0)

	// Isolation defaults
	viper.SetDefault("isolation.webhook_url", "")
	viper.SetDefault("isolation.timeout", 10*time.Second)

	// Receipt defaults
	viper.SetDefault("receipt.output_dir", "generated_receipts")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

func bindEnvVars() {
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("receipt.company_name", "COMPANY_NAME")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if c.Verification.ExactTolerance < 0 {
		return fmt.Errorf("verification.exact_tolerance must not be negative")
	}
	if c.Verification.ClosePct < 0 || c.Verification.ClosePct > 1 {
		return fmt.Errorf("verification.close_pct must be between 0 and 1")
	}
	return nil
}
