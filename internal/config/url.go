package config

import (
	"fmt"
	"net/url"
)

// ValidateBackendURL checks that raw is an absolute http(s) base URL with a
// host and no query or fragment.
func ValidateBackendURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (only http and https are allowed)", parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return fmt.Errorf("URL missing hostname")
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return fmt.Errorf("backend URL must not carry a query or fragment")
	}
	return nil
}
