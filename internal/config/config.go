// Package config provides configuration management for the site server
// using Viper for file and flag values and caarlos0/env for the CMS
// credentials, which keep their conventional AGILITY_* variable names.
//
// The configuration covers the HTTP server, the CMS connection, the shared
// content cache, the optional file-backed content source, preview mode and
// logging.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	CMS     CMSConfig     `mapstructure:"cms" yaml:"cms"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Content ContentConfig `mapstructure:"content" yaml:"content"`
	Preview PreviewConfig `mapstructure:"preview" yaml:"preview"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	Host           string   `mapstructure:"host" yaml:"host"`
	Environment    string   `mapstructure:"environment" yaml:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	BaseURL        string   `mapstructure:"base_url" yaml:"base_url"`
}

// CMSConfig holds the fetch API connection. Every field can be overridden by
// its AGILITY_* environment variable.
type CMSConfig struct {
	GUID                  string   `mapstructure:"guid" yaml:"guid" env:"AGILITY_GUID"`
	FetchAPIKey           string   `mapstructure:"fetch_api_key" yaml:"fetch_api_key" env:"AGILITY_API_FETCH_KEY"`
	PreviewAPIKey         string   `mapstructure:"preview_api_key" yaml:"preview_api_key" env:"AGILITY_API_PREVIEW_KEY"`
	SecurityKey           string   `mapstructure:"security_key" yaml:"security_key" env:"AGILITY_SECURITY_KEY"`
	Locales               []string `mapstructure:"locales" yaml:"locales" env:"AGILITY_LOCALES" envSeparator:","`
	Sitemap               string   `mapstructure:"sitemap" yaml:"sitemap" env:"AGILITY_SITEMAP"`
	FetchCacheSeconds     int      `mapstructure:"fetch_cache_duration" yaml:"fetch_cache_duration" env:"AGILITY_FETCH_CACHE_DURATION"`
	PathRevalidateSeconds int      `mapstructure:"path_revalidate_duration" yaml:"path_revalidate_duration" env:"AGILITY_PATH_REVALIDATE_DURATION"`
	BaseURL               string   `mapstructure:"base_url" yaml:"base_url" env:"AGILITY_API_BASE_URL"`
	RequestTimeoutSeconds int      `mapstructure:"request_timeout" yaml:"request_timeout"`
}

type CacheConfig struct {
	Backend    string      `mapstructure:"backend" yaml:"backend"`
	MaxEntries int         `mapstructure:"max_entries" yaml:"max_entries"`
	Redis      RedisConfig `mapstructure:"redis" yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// ContentConfig selects the file-backed content source. When Dir is empty
// the site talks to the CMS fetch API.
type ContentConfig struct {
	Dir   string `mapstructure:"dir" yaml:"dir"`
	Watch bool   `mapstructure:"watch" yaml:"watch"`
}

type PreviewConfig struct {
	CookieName        string        `mapstructure:"cookie_name" yaml:"cookie_name"`
	KeyTTL            time.Duration `mapstructure:"key_ttl" yaml:"key_ttl"`
	EnableKeyEndpoint bool          `mapstructure:"enable_key_endpoint" yaml:"enable_key_endpoint"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// DefaultLocale is the first configured locale.
func (c *CMSConfig) DefaultLocale() string {
	if len(c.Locales) == 0 {
		return "en-us"
	}
	return c.Locales[0]
}

// HasLocale reports whether locale is one of the configured locales.
func (c *CMSConfig) HasLocale(locale string) bool {
	locale = strings.ToLower(locale)
	for _, l := range c.Locales {
		if l == locale {
			return true
		}
	}
	return false
}

// FetchCacheDuration is the TTL applied to cached CMS fetches.
func (c *CMSConfig) FetchCacheDuration() time.Duration {
	return time.Duration(c.FetchCacheSeconds) * time.Second
}

// PathRevalidateDuration is the s-maxage advertised on live pages.
func (c *CMSConfig) PathRevalidateDuration() time.Duration {
	return time.Duration(c.PathRevalidateSeconds) * time.Second
}

// RequestTimeout bounds a single CMS fetch.
func (c *CMSConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle slices set via viper flags or env (workaround for viper slice handling)
	if viper.IsSet("server.allowed_origins") && len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = viper.GetStringSlice("server.allowed_origins")
	}
	if viper.IsSet("cms.locales") && len(config.CMS.Locales) == 0 {
		config.CMS.Locales = viper.GetStringSlice("cms.locales")
	}

	if err := ParseEnv(&config.CMS); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Port == 0 && !viper.IsSet("server.port") {
		config.Server.Port = 3000
	}
	if config.Server.Environment == "" {
		config.Server.Environment = EnvProduction
	}
	config.Server.Environment = strings.ToLower(config.Server.Environment)
	config.Server.BaseURL = strings.TrimRight(config.Server.BaseURL, "/")
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{}
	}

	if len(config.CMS.Locales) == 0 {
		config.CMS.Locales = []string{"en-us"}
	}
	for i, l := range config.CMS.Locales {
		config.CMS.Locales[i] = NormalizeLocale(l)
	}
	if config.CMS.Sitemap == "" {
		config.CMS.Sitemap = "website"
	}
	if config.CMS.FetchCacheSeconds <= 0 {
		config.CMS.FetchCacheSeconds = 60
	}
	if config.CMS.PathRevalidateSeconds <= 0 {
		config.CMS.PathRevalidateSeconds = 10
	}
	if config.CMS.RequestTimeoutSeconds <= 0 {
		config.CMS.RequestTimeoutSeconds = 10
	}
	config.CMS.BaseURL = strings.TrimRight(config.CMS.BaseURL, "/")

	if config.Cache.Backend == "" {
		config.Cache.Backend = CacheMemory
	}
	config.Cache.Backend = strings.ToLower(config.Cache.Backend)
	if config.Cache.MaxEntries <= 0 {
		config.Cache.MaxEntries = 1000
	}
	if config.Cache.Redis.Addr == "" {
		config.Cache.Redis.Addr = "localhost:6379"
	}
	if config.Cache.Redis.Prefix == "" {
		config.Cache.Redis.Prefix = "sitezone:"
	}

	if config.Preview.CookieName == "" {
		config.Preview.CookieName = "__sz_draft"
	}
	if config.Preview.KeyTTL <= 0 {
		config.Preview.KeyTTL = time.Hour
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
}
