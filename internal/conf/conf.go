package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/chatmate/chatmate/internal/biz/usecase"
	"github.com/chatmate/chatmate/internal/infra/openai"
)

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Config represents application configuration
type Config struct {
	Server ServerConfig `mapstructure:",squash"`
	Auth   AuthConfig   `mapstructure:",squash"`
	Store  StoreConfig  `mapstructure:",squash"`
	Redis  RedisConfig  `mapstructure:",squash"`
	LLM    LLMConfig    `mapstructure:",squash"`
	Log    LogConfig    `mapstructure:",squash"`

	PromptsPath string `mapstructure:"prompts_config_path"`

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig `mapstructure:"-"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Addr      string `mapstructure:"http_addr"`
	ClientURL string `mapstructure:"client_url"` // CORS and websocket origin
	Env       string `mapstructure:"env"`
}

// AuthConfig contains access token configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTTTL    time.Duration `mapstructure:"jwt_ttl"`
}

// StoreConfig contains message and user store configuration
type StoreConfig struct {
	Driver        string `mapstructure:"store_driver"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
	MongoMaxPool  int    `mapstructure:"mongo_max_pool"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
}

// RedisConfig contains Redis configuration (optional)
type RedisConfig struct {
	Addr            string        `mapstructure:"redis_addr"`
	Password        string        `mapstructure:"redis_password"`
	DB              int           `mapstructure:"redis_db"`
	PresenceTTL     time.Duration `mapstructure:"presence_ttl"`
	AgentSessionTTL time.Duration `mapstructure:"agent_session_ttl"`
}

// Enabled reports whether a Redis address is configured
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// LLMConfig contains hosted language model configuration (optional)
type LLMConfig struct {
	APIKey         string        `mapstructure:"llm_api_key"`
	BaseURL        string        `mapstructure:"llm_base_url"`
	Model          string        `mapstructure:"llm_model"`
	EmbeddingModel string        `mapstructure:"llm_embedding_model"`
	Temperature    float32       `mapstructure:"llm_temperature"`
	Timeout        time.Duration `mapstructure:"llm_timeout"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `mapstructure:"log_level"`
	Format string `mapstructure:"log_format"`
}

// ConfigError reports an invalid configuration value
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

func setDefaults(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()

	v.SetDefault("http_addr", ":3001")
	v.SetDefault("client_url", "http://localhost:3000")
	v.SetDefault("env", "development")

	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_ttl", 24*time.Hour)

	v.SetDefault("store_driver", DriverSQLite)
	v.SetDefault("sqlite_path", filepath.Join(homeDir, ".chatmate", "chat.db"))
	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_database", "chatmate")
	v.SetDefault("mongo_max_pool", 20)
	v.SetDefault("postgres_dsn", "")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("presence_ttl", 90*time.Second)
	v.SetDefault("agent_session_ttl", 24*time.Hour)

	v.SetDefault("llm_api_key", "")
	v.SetDefault("llm_base_url", "")
	v.SetDefault("llm_model", "gpt-4o-mini")
	v.SetDefault("llm_embedding_model", "text-embedding-3-small")
	v.SetDefault("llm_temperature", 0.7)
	v.SetDefault("llm_timeout", usecase.DefaultLLMTimeout)

	v.SetDefault("prompts_config_path", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Load loads configuration from .env, the environment and an optional CONFIG_FILE
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	prompts, err := LoadPromptsConfig(cfg.PromptsPath)
	if err != nil {
		return nil, err
	}
	cfg.Prompts = prompts

	return &cfg, nil
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks the configuration
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return &ConfigError{Field: "SQLITE_PATH", Message: "required for the sqlite driver"}
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return &ConfigError{Field: "MONGO_URI", Message: "required for the mongo driver"}
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return &ConfigError{Field: "POSTGRES_DSN", Message: "required for the postgres driver"}
		}
	default:
		return &ConfigError{Field: "STORE_DRIVER", Message: fmt.Sprintf("unknown driver %q", c.Store.Driver)}
	}

	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return &ConfigError{Field: "JWT_SECRET", Message: "required in production"}
	}
	return nil
}

// TokenSecret returns the JWT signing secret; development falls back to a fixed one
func (c *Config) TokenSecret() string {
	if c.Auth.JWTSecret == "" {
		return "chatmate-dev-secret"
	}
	return c.Auth.JWTSecret
}

// ToOpenAIConfig converts to the LLM client configuration
func (c *Config) ToOpenAIConfig() openai.Config {
	return openai.Config{
		APIKey:         c.LLM.APIKey,
		BaseURL:        c.LLM.BaseURL,
		Model:          c.LLM.Model,
		EmbeddingModel: c.LLM.EmbeddingModel,
		Temperature:    c.LLM.Temperature,
	}
}

// ToPromptConfig converts to prompt configuration
func (c *Config) ToPromptConfig() usecase.PromptConfig {
	if c.Prompts == nil {
		return usecase.DefaultPromptConfig
	}
	return c.Prompts.ToPromptConfig()
}
