// Package validation checks untrusted request input before it is used in
// redirects, origins, and log lines.
package validation

import (
	"fmt"
	"net/url"
	"strings"

	siteerrors "github.com/conneroisu/sitezone/internal/errors"
)

// SafeRedirectPath checks that target is a same-site path and returns it
// unchanged. Absolute URLs, scheme-relative URLs, backslashes, and control
// characters are rejected so a redirect can never leave the site.
func SafeRedirectPath(target string) (string, error) {
	if target == "" || !strings.HasPrefix(target, "/") {
		return "", siteerrors.ErrUnsafeRedirect(target)
	}
	if strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return "", siteerrors.ErrUnsafeRedirect(target)
	}
	for _, r := range target {
		if r < 0x20 || r == 0x7f {
			return "", siteerrors.ErrUnsafeRedirect(target)
		}
	}

	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" || parsed.User != nil {
		return "", siteerrors.ErrUnsafeRedirect(target)
	}
	return target, nil
}

// WithQueryFlag appends key=value to target, replacing any existing value
// for key.
func WithQueryFlag(target, key, value string) string {
	path, rawQuery, _ := strings.Cut(target, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		q = url.Values{}
	}
	if q.Has(key) {
		q.Del(key)
		rawQuery = q.Encode()
	}
	if rawQuery == "" {
		return path + "?" + url.QueryEscape(key) + "=" + url.QueryEscape(value)
	}
	return path + "?" + rawQuery + "&" + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}

// ValidateBaseURL checks an absolute http(s) site URL.
func ValidateBaseURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (only http/https allowed)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must have a valid hostname")
	}
	if strings.ContainsAny(rawURL, " \n\r\"'<>") {
		return fmt.Errorf("URL contains characters that are not allowed")
	}
	return nil
}
