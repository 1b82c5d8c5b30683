package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateOrigin checks a browser Origin header against an allow-list of
// full origins or bare hosts. "*" allows any http(s) origin.
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" || origin == allowed || originURL.Host == allowed {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}

// SanitizeInput drops null bytes and control characters other than common
// whitespace.
func SanitizeInput(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var sanitized strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' || r == '\r' {
			sanitized.WriteRune(r)
		}
	}

	return sanitized.String()
}
