package config

import (
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/language"

	siteerrors "github.com/conneroisu/sitezone/internal/errors"
	"github.com/conneroisu/sitezone/internal/validation"
)

var hostnameRegex = regexp.MustCompile(
	`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`,
)

// NormalizeLocale canonicalizes a BCP 47 tag into the lowercase form the CMS
// uses in URLs and cache tags ("en-US" becomes "en-us"). Unparseable input is
// only trimmed and lowercased; validation reports it.
func NormalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	tag, err := language.Parse(locale)
	if err != nil {
		return strings.ToLower(locale)
	}
	return strings.ToLower(tag.String())
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	var errs siteerrors.ValidationErrorCollection

	validateServerConfig(&config.Server, &errs)
	validateCMSConfig(config, &errs)
	validateCacheConfig(&config.Cache, &errs)
	validateContentConfig(&config.Content, &errs)
	validateLoggingConfig(&config.Logging, &errs)

	if errs.HasErrors() {
		return errs.ToSiteError()
	}
	return nil
}

func validateServerConfig(config *ServerConfig, errs *siteerrors.ValidationErrorCollection) {
	// allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		errs.AddField("server.port", config.Port,
			fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			"Common development ports: 3000, 8080",
		)
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			errs.AddField("server.host", config.Host, err.Error(),
				"Use 'localhost' for local development",
				"Use '0.0.0.0' to bind to all interfaces",
			)
		}
	}

	if config.Environment != EnvDevelopment && config.Environment != EnvProduction {
		errs.AddField("server.environment", config.Environment, "unknown environment",
			"Use 'development' or 'production'",
		)
	}

	if config.BaseURL != "" {
		if err := validation.ValidateBaseURL(config.BaseURL); err != nil {
			errs.AddField("server.base_url", config.BaseURL, err.Error(),
				"Use the public site origin, e.g. https://www.example.com",
			)
		}
	}

	for _, origin := range config.AllowedOrigins {
		if origin == "*" && config.Environment == EnvProduction {
			errs.AddField("server.allowed_origins", origin, "wildcard origin is not allowed in production")
		}
	}
}

func validateCMSConfig(config *Config, errs *siteerrors.ValidationErrorCollection) {
	cms := &config.CMS

	for _, locale := range cms.Locales {
		if _, err := language.Parse(locale); err != nil {
			errs.AddField("cms.locales", locale, "not a valid BCP 47 language tag",
				"Locales look like 'en-us' or 'fr-ca'",
			)
		}
	}

	if strings.ContainsAny(cms.Sitemap, "/?#\\ ") {
		errs.AddField("cms.sitemap", cms.Sitemap, "channel name contains invalid characters")
	}

	// The file source needs no API credentials.
	if config.Content.Dir == "" && cms.GUID == "" {
		errs.AddField("cms.guid", cms.GUID, "instance GUID is required when no content.dir is set",
			"Set AGILITY_GUID",
		)
	}

	if config.Server.Environment == EnvProduction && cms.SecurityKey == "" {
		errs.AddField("cms.security_key", "", "security key is required in production",
			"Set AGILITY_SECURITY_KEY",
		)
	}

	if cms.BaseURL != "" && !strings.HasPrefix(cms.BaseURL, "https://") && !strings.HasPrefix(cms.BaseURL, "http://") {
		errs.AddField("cms.base_url", cms.BaseURL, "base URL must be http or https")
	}
}

func validateCacheConfig(config *CacheConfig, errs *siteerrors.ValidationErrorCollection) {
	switch config.Backend {
	case CacheMemory, CacheRedis:
	default:
		errs.AddField("cache.backend", config.Backend, "unknown cache backend",
			"Use 'memory' or 'redis'",
		)
	}

	if config.Redis.DB < 0 {
		errs.AddField("cache.redis.db", config.Redis.DB, "redis database index must not be negative")
	}
}

func validateContentConfig(config *ContentConfig, errs *siteerrors.ValidationErrorCollection) {
	if config.Dir == "" {
		if config.Watch {
			errs.AddField("content.watch", true, "watching requires content.dir")
		}
		return
	}
	if err := validatePath(config.Dir); err != nil {
		errs.AddField("content.dir", config.Dir, err.Error())
	}
}

func validateLoggingConfig(config *LoggingConfig, errs *siteerrors.ValidationErrorCollection) {
	switch strings.ToLower(config.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs.AddField("logging.level", config.Level, "unknown log level")
	}
	if config.Format != "text" && config.Format != "json" {
		errs.AddField("logging.format", config.Format, "format must be text or json")
	}
}

func validateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
