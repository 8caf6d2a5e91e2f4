package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/chatbridge/bridge"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Completion CompletionConfig `mapstructure:"completion"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Users      UsersConfig      `mapstructure:"users"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Engine     EngineConfig     `mapstructure:"engine"`
}

// ServerConfig stores HTTP listener settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ProviderConfig stores chat-provider (webhook + callback API) settings.
type ProviderConfig struct {
	ScreenName      string        `mapstructure:"screen_name"`
	ServerURI       string        `mapstructure:"server_uri"`
	AccessToken     string        `mapstructure:"access_token"`   // SENSITIVE: never logged
	PublicKeyPEM    string        `mapstructure:"public_key_pem"` // accepts \n-escaped PEM
	ProgressTimeout time.Duration `mapstructure:"progress_timeout"`
	FinalTimeout    time.Duration `mapstructure:"final_timeout"`
	WelcomeText     string        `mapstructure:"welcome_text"`
	PendingText     string        `mapstructure:"pending_text"`
	ProgressText    string        `mapstructure:"progress_text"`
}

// CompletionConfig stores completion-service (LLM + retrieval) settings.
type CompletionConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	APIKey      string        `mapstructure:"api_key"` // SENSITIVE: never logged
	Deployment  string        `mapstructure:"deployment"`
	APIVersion  string        `mapstructure:"api_version"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// Retrieval data source attached to every completion call ("on your
	// data" style). Empty SearchEndpoint disables the block.
	SearchEndpoint      string `mapstructure:"search_endpoint"`
	SearchIndex         string `mapstructure:"search_index"`
	SearchAPIKey        string `mapstructure:"search_api_key"` // SENSITIVE: never logged
	EmbeddingDeployment string `mapstructure:"embedding_deployment"`
}

// CacheConfig stores session-cache settings.
type CacheConfig struct {
	Backend    string        `mapstructure:"backend"` // "redis" or "memory"
	RedisAddr  string        `mapstructure:"redis_addr"`
	RedisPass  string        `mapstructure:"redis_password"` // SENSITIVE: never logged
	RedisDB    int           `mapstructure:"redis_db"`
	RedisTLS   bool          `mapstructure:"redis_tls"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	MaxHistory int           `mapstructure:"max_history"`
}

// UsersConfig stores the user-registration database settings.
type UsersConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// CatalogConfig stores the price-list catalog settings.
type CatalogConfig struct {
	CSVPath string `mapstructure:"csv_path"`
	Watch   bool   `mapstructure:"watch"`
	Note    string `mapstructure:"note"`
}

// EngineConfig stores retry and orchestration tunables.
type EngineConfig struct {
	RetryMaxAttempts int           `mapstructure:"retry_max_attempts"`
	RetryBaseDelay   time.Duration `mapstructure:"retry_base_delay"`
	RetryJitterMax   time.Duration `mapstructure:"retry_jitter_max"`
	ToolTimeout      time.Duration `mapstructure:"tool_timeout"`
	SystemPrompt     string        `mapstructure:"system_prompt"`
}

var (
	// ErrMissingAccessToken indicates the provider access token is not set.
	ErrMissingAccessToken = errors.New("missing provider access token")

	// ErrMissingPublicKey indicates the provider public key is not set.
	ErrMissingPublicKey = errors.New("missing provider public key")

	// ErrMissingCompletionEndpoint indicates the completion endpoint is not set.
	ErrMissingCompletionEndpoint = errors.New("missing completion endpoint")

	// ErrInvalidCacheBackend indicates an unknown cache backend name.
	ErrInvalidCacheBackend = errors.New("invalid cache backend")

	// ErrInvalidMaxHistory indicates a non-positive history bound.
	ErrInvalidMaxHistory = errors.New("invalid max history")
)

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Server defaults
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)

	// Provider defaults. The empty defaults register the keys with viper so
	// env-only values survive Unmarshal.
	viper.SetDefault("provider.screen_name", "")
	viper.SetDefault("provider.access_token", "")
	viper.SetDefault("provider.public_key_pem", "")
	viper.SetDefault("provider.server_uri", "salesiq.zoho.com")
	viper.SetDefault("provider.progress_timeout", 10*time.Second)
	viper.SetDefault("provider.final_timeout", 30*time.Second)
	viper.SetDefault("provider.welcome_text", "👋 Hello! I am the clinic's virtual assistant. How can I help you today?")
	viper.SetDefault("provider.pending_text", "One moment, I'm looking into that…")
	viper.SetDefault("provider.progress_text", "Just a few more seconds…")

	// Completion defaults
	viper.SetDefault("completion.endpoint", "")
	viper.SetDefault("completion.api_key", "")
	viper.SetDefault("completion.deployment", "")
	viper.SetDefault("completion.search_endpoint", "")
	viper.SetDefault("completion.search_index", "")
	viper.SetDefault("completion.search_api_key", "")
	viper.SetDefault("completion.embedding_deployment", "")
	viper.SetDefault("completion.api_version", "2025-01-01-preview")
	viper.SetDefault("completion.temperature", 0.0)
	viper.SetDefault("completion.max_tokens", 1024)
	viper.SetDefault("completion.timeout", 60*time.Second)

	// Cache defaults
	viper.SetDefault("cache.backend", "redis")
	viper.SetDefault("cache.redis_addr", "localhost:6379")
	viper.SetDefault("cache.session_ttl", 900*time.Second)
	viper.SetDefault("cache.max_history", 6)

	// Users defaults
	viper.SetDefault("users.db_path", internal.DefaultUsersDBPath)

	// Catalog defaults
	viper.SetDefault("catalog.csv_path", "./data/price_list.csv")
	viper.SetDefault("catalog.watch", true)
	viper.SetDefault("catalog.note", "Los precios mostrados son aproximados y pueden variar. Consulta en recepción para un presupuesto exacto.")

	// Engine defaults
	viper.SetDefault("engine.retry_max_attempts", 5)
	viper.SetDefault("engine.retry_base_delay", time.Second)
	viper.SetDefault("engine.retry_jitter_max", 500*time.Millisecond)
	viper.SetDefault("engine.tool_timeout", 15*time.Second)
	viper.SetDefault("engine.system_prompt", "")

	viper.SetEnvPrefix(strings.ToUpper(internal.DefaultAppName))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No file is fine: env + defaults carry a full configuration.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// PEM keys arrive through env vars with literal "\n" sequences.
	cfg.Provider.PublicKeyPEM = strings.ReplaceAll(cfg.Provider.PublicKeyPEM, `\n`, "\n")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that all required fields are set and in range.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Provider.AccessToken) == "" {
		return ErrMissingAccessToken
	}
	if strings.TrimSpace(c.Provider.PublicKeyPEM) == "" {
		return ErrMissingPublicKey
	}
	if strings.TrimSpace(c.Completion.Endpoint) == "" {
		return ErrMissingCompletionEndpoint
	}
	switch c.Cache.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCacheBackend, c.Cache.Backend)
	}
	if c.Cache.MaxHistory <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxHistory, c.Cache.MaxHistory)
	}
	return nil
}
