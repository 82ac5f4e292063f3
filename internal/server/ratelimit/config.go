package ratelimit

import (
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a route class.
type EndpointConfig struct {
	Path   string        // Path pattern; a trailing "/" means prefix match unless Exact is set
	Exact  bool          // Match Path literally even if it ends with "/"
	Method string        // HTTP method (GET, POST, etc.); HEAD is matched as GET
	Limit  int           // Maximum requests per window, <= 0 means unlimited
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig builds the limiter configuration for the page server. Page
// renders are limited to rendersPerMinute per client; a non-positive value
// disables limiting altogether. Allow and deny lists come from
// NEWSDESK_RATE_LIMIT_WHITELIST and NEWSDESK_RATE_LIMIT_BLACKLIST.
func LoadConfig(rendersPerMinute int, lookupEnv func(string) (string, bool)) *Config {
	if rendersPerMinute <= 0 {
		return &Config{Enabled: false}
	}

	env := func(key string) string {
		if lookupEnv == nil {
			return ""
		}
		v, _ := lookupEnv(key)
		return v
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    0, // static files are not limited
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       parseIPList(env("NEWSDESK_RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(env("NEWSDESK_RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(rendersPerMinute),
	}
}

// DefaultEndpointConfigs returns the route classes worth limiting. Only the
// page render fans out to upstream feeds, so it is the only limited route.
func DefaultEndpointConfigs(rendersPerMinute int) []EndpointConfig {
	return []EndpointConfig{
		{Path: "/", Exact: true, Method: "GET", Limit: rendersPerMinute, Window: time.Minute, Burst: min(rendersPerMinute, 10)},
	}
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	if list == "" {
		return result
	}

	ips := strings.Split(list, ",")
	for _, ip := range ips {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}

	return result
}
