package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"innerbloom-server/internal/model"
	"innerbloom-server/shared/logger"
	"innerbloom-server/shared/utils"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Config is the process configuration. It is built once by LoadConfig and
// passed down by value; nothing in the pipeline reads the environment itself.
type Config struct {
	// File resolution. Relative candidate paths are resolved against AppRoot.
	AppRoot        string `envconfig:"APP_ROOT" default:"."`
	SnapshotPath   string `envconfig:"SNAPSHOT_PATH"`
	FixturePath    string `envconfig:"FIXTURE_PATH"`
	PromptsDir     string `envconfig:"PROMPTS_DIR"`
	DiagnosticsDir string `envconfig:"DIAGNOSTICS_DIR"`

	// Generation
	DefaultMode     string `envconfig:"DEFAULT_MODE" default:"flow"`
	DryRunTaskCount int    `envconfig:"DRY_RUN_TASK_COUNT" default:"15"`

	// AI (OpenAI-compatible API or Ollama)
	AIClientType string        `envconfig:"AI_CLIENT_TYPE" default:"openai"`
	AIBaseURL    string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	AIModel      string        `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	AITimeout    time.Duration `envconfig:"AI_TIMEOUT" default:"90s"`
	// Secret, read from AI_API_KEY or /run/secrets/ai_api_key.
	AIAPIKey string `ignored:"true"`

	// PostgreSQL
	DatabaseURL   string        `envconfig:"DATABASE_URL"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"5"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE" default:"5m"`
	MigrationsDir string        `envconfig:"MIGRATIONS_DIR"` // empty uses the embedded migrations

	// RabbitMQ
	RabbitMQURL   string `envconfig:"RABBITMQ_URL"`
	TasksExchange string `envconfig:"TASKS_EXCHANGE" default:"innerbloom.tasks"`
	RequestQueue  string `envconfig:"REQUEST_QUEUE" default:"task_generation_requests"`

	// Redis, optional. When RedisAddr is set the worker skips request ids it has already claimed.
	RedisAddr        string        `envconfig:"REDIS_ADDR"`
	RedisPassword    string        `envconfig:"REDIS_PASSWORD"`
	RedisDB          int           `envconfig:"REDIS_DB" default:"0"`
	RequestDedupeTTL time.Duration `envconfig:"REQUEST_DEDUPE_TTL" default:"24h"`

	MetricsPort string `envconfig:"METRICS_PORT" default:"9092"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
}

// LoadConfig reads .env (if present), the environment and the docker secrets.
func LoadConfig() (Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	key, err := utils.ReadSecretOrEnv("ai_api_key", "AI_API_KEY")
	if err != nil && !errors.Is(err, utils.ErrSecretNotFound) {
		return Config{}, err
	}
	// An absent key is allowed: dry-run and fixture replay never call the model.
	cfg.AIAPIKey = key

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values envconfig cannot check on its own.
func (c Config) Validate() error {
	if _, ok := model.ParseMode(c.DefaultMode); !ok {
		return fmt.Errorf("invalid DEFAULT_MODE %q", c.DefaultMode)
	}
	if c.DryRunTaskCount <= 0 {
		return fmt.Errorf("DRY_RUN_TASK_COUNT must be positive, got %d", c.DryRunTaskCount)
	}
	if c.RedisAddr != "" && c.RequestDedupeTTL <= 0 {
		return fmt.Errorf("REQUEST_DEDUPE_TTL must be positive, got %v", c.RequestDedupeTTL)
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive, got %v", c.AITimeout)
	}
	return nil
}

// Logger returns the logger settings.
func (c Config) Logger() logger.Config {
	return logger.Config{Level: c.LogLevel, Encoding: c.LogEncoding}
}

// Mode returns DefaultMode as a model.Mode, falling back to flow.
func (c Config) Mode() model.Mode {
	if m, ok := model.ParseMode(c.DefaultMode); ok {
		return m
	}
	return model.ModeFlow
}

// LogSummary logs the loaded configuration without secrets.
func (c Config) LogSummary(log *zap.Logger) {
	log.Info("Configuration loaded",
		zap.String("app_root", c.AppRoot),
		zap.String("snapshot_path", c.SnapshotPath),
		zap.String("prompts_dir", c.PromptsDir),
		zap.String("default_mode", c.DefaultMode),
		zap.String("ai_client_type", c.AIClientType),
		zap.String("ai_base_url", c.AIBaseURL),
		zap.String("ai_model", c.AIModel),
		zap.Duration("ai_timeout", c.AITimeout),
		zap.Bool("ai_api_key_loaded", c.AIAPIKey != ""),
		zap.String("database_url", maskDSN(c.DatabaseURL)),
		zap.Bool("rabbitmq_configured", c.RabbitMQURL != ""),
		zap.String("redis_addr", c.RedisAddr),
	)
}

// maskDSN hides the password of a connection URL.
func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "[invalid dsn format]"
	}
	return u.Redacted()
}
