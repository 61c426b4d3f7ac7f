package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the passport service. Tags use
// mapstructure for viper unmarshalling; every key can also be set through the
// environment.
type Config struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	// Authorization provider (code-for-token exchange).
	OAuthClientID     string `mapstructure:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `mapstructure:"OAUTH_CLIENT_SECRET"`
	OAuthAuthorizeURL string `mapstructure:"OAUTH_AUTHORIZE_URL"`
	OAuthTokenURL     string `mapstructure:"OAUTH_TOKEN_URL"`
	OAuthRedirectURI  string `mapstructure:"OAUTH_REDIRECT_URI"`
	OAuthScope        string `mapstructure:"OAUTH_SCOPE"`

	// PublicBaseURL is the externally reachable base of this service, used
	// when building join links.
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`

	// Group-membership directory service.
	DirectoryBaseURL string `mapstructure:"DIRECTORY_BASE_URL"`
	DirectoryAPIKey  string `mapstructure:"DIRECTORY_API_KEY"`

	// Delegated-token read cache: "memory" or "redis".
	TokenCacheBackend string `mapstructure:"TOKEN_CACHE_BACKEND"`
	TokenCacheTTLMin  int    `mapstructure:"TOKEN_CACHE_TTL_MIN"`
	RedisAddr         string `mapstructure:"REDIS_ADDR"`
	RedisPassword     string `mapstructure:"REDIS_PASSWORD"`
	RedisDB           int    `mapstructure:"REDIS_DB"`
}

// Load reads configuration from file, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/passport/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "3000")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/passport_dev")
	v.SetDefault("MONGO_DB_NAME", "passport_dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OAUTH_AUTHORIZE_URL", "https://discord.com/api/oauth2/authorize")
	v.SetDefault("OAUTH_TOKEN_URL", "https://discord.com/api/oauth2/token")
	v.SetDefault("OAUTH_SCOPE", "guilds.join")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:3000")
	v.SetDefault("TOKEN_CACHE_BACKEND", "memory")
	v.SetDefault("TOKEN_CACHE_TTL_MIN", 5)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if cfg.OAuthClientID == "" || cfg.OAuthClientSecret == "" {
		return nil, fmt.Errorf("OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET must be set")
	}
	if cfg.OAuthRedirectURI == "" {
		cfg.OAuthRedirectURI = cfg.PublicBaseURL + "/callback"
	}

	return &cfg, nil
}
