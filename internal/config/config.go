package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "EMAIL_CLASSIFIER"

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. A .env file in the working
// directory is loaded first; variables already set in the environment win.
func New() (*Config, error) {
	return NewWithFile("")
}

// NewWithFile is New with an explicit config file path. An empty path
// searches the default locations.
func NewWithFile(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/email-classifier/")
		v.AddConfigPath("$HOME/.email-classifier")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	return v
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Conventional provider variables are honoured as well.
	_ = v.BindEnv("openai.api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY")
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", "20s")
	v.SetDefault("llm.breaker.max_failures", 5)
	v.SetDefault("llm.breaker.open_timeout", "30s")

	// Server defaults
	v.SetDefault("server.filter_type", "http")
	v.SetDefault("server.listen_address", "0.0.0.0:8000")
	v.SetDefault("server.body_limit", 10*1024*1024)
	v.SetDefault("server.read_timeout", "30s")

	// SMTP relay defaults
	v.SetDefault("smtp.listen_address", "0.0.0.0:10025")
	v.SetDefault("smtp.relay.enabled", true)
	v.SetDefault("smtp.relay.address", "localhost")
	v.SetDefault("smtp.relay.port", 10026)
	v.SetDefault("smtp.headers.label", "X-Email-Productivity")
	v.SetDefault("smtp.headers.confidence", "X-Email-Productivity-Confidence")
	v.SetDefault("smtp.headers.category", "X-Email-Category")
	v.SetDefault("smtp.whitelisted_domains", []string{})
	v.SetDefault("smtp.classify_timeout", "60s")

	// CLI filter defaults
	v.SetDefault("cli.json", false)
	v.SetDefault("cli.verbose", false)

	// Local model defaults
	v.SetDefault("model.path", "./model/classifier.json")
	v.SetDefault("model.watch", true)

	// Training defaults
	v.SetDefault("training.dataset_path", "./train/sample_data.csv")
	v.SetDefault("training.max_features", 1000000)
	v.SetDefault("training.c", 1.0)
	v.SetDefault("training.max_iter", 300)
	v.SetDefault("training.tolerance", 1e-4)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.category_temperature", 0.0)
	v.SetDefault("bedrock.reply_temperature", 0.3)
	v.SetDefault("bedrock.max_body_size", 8192)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.category_temperature", 0.0)
	v.SetDefault("gemini.reply_temperature", 0.3)
	v.SetDefault("gemini.max_body_size", 8192)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.category_temperature", 0.0)
	v.SetDefault("openai.reply_temperature", 0.3)
	v.SetDefault("openai.max_body_size", 8192)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "./data/category_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/email_classifier?parseTime=true")
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.redis_prefix", "email-classifier:category:")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// Set overrides a value, used by command-line flags.
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
