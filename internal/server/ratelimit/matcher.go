package ratelimit

import (
	"net/http"
	"strings"
)

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Returns the matching EndpointConfig or nil if no match is found.
// Paths ending with "/" match as prefixes unless the config is Exact.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if method == http.MethodHead {
		method = http.MethodGet
	}

	// Special case: health check endpoint is unlimited
	if path == "/healthz" && method == http.MethodGet {
		return &EndpointConfig{
			Path:  path,
			Limit: 0, // Unlimited
		}
	}

	// Try exact match first
	for i := range configs {
		config := &configs[i]
		if config.Path == path && config.Method == method {
			return config
		}
	}

	// Try prefix match (for paths ending with "/")
	for i := range configs {
		config := &configs[i]
		if config.Exact || config.Method != method || !strings.HasSuffix(config.Path, "/") {
			continue
		}
		if strings.HasPrefix(path, config.Path) {
			return config
		}
	}

	// No match found
	return nil
}
