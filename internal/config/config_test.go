package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"port": 8080,
		"news_url": "https://example.com/news",
		"news_timeout_ms": 2500,
		"bold_words": ["hello"],
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "https://example.com/news", cfg.NewsURL)
	assert.Equal(t, 2500, cfg.NewsTimeoutMS)
	assert.Equal(t, []string{"hello"}, cfg.BoldWords)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultNewsURL, cfg.NewsURL)
	assert.Equal(t, DefaultPhrasesURL, cfg.PhrasesURL)
	assert.Equal(t, 6*time.Second, cfg.NewsTimeout())
	assert.Equal(t, 6*time.Second, cfg.PhrasesTimeout())
	assert.Equal(t, "ru", cfg.Locale)
	assert.Equal(t, []string{"привет", "privet"}, cfg.BoldWords)
	assert.False(t, cfg.RateLimitEnabled(), "rate limiting is opt-in")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"port": 8080, "locale": "en", "news_timeout_ms": 100}`), 0644))

	cfg, err := Load(tmpFile, envMap(map[string]string{
		"NEWSDESK_PORT":               "9090",
		"NEWSDESK_PHRASES_TIMEOUT_MS": "250",
		"NEWSDESK_BOLD_WORDS":         "hi, hey ,,",
		"NEWSDESK_RATE_LIMIT_ENABLED": "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "en", cfg.Locale)
	assert.Equal(t, 100*time.Millisecond, cfg.NewsTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.PhrasesTimeout())
	assert.Equal(t, []string{"hi", "hey"}, cfg.BoldWords)
	assert.False(t, cfg.RateLimitEnabled())
}

func TestLoad_RateLimitOptIn(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected int
	}{
		{"default is off", nil, -1},
		{"switched on", map[string]string{"NEWSDESK_RATE_LIMIT_ENABLED": "true"}, DefaultRendersPerMin},
		{"explicit rate", map[string]string{"NEWSDESK_RENDERS_PER_MINUTE": "30"}, 30},
		{"switched on with rate", map[string]string{"NEWSDESK_RATE_LIMIT_ENABLED": "1", "NEWSDESK_RENDERS_PER_MINUTE": "5"}, 5},
		{"switched off wins over rate", map[string]string{"NEWSDESK_RATE_LIMIT_ENABLED": "false", "NEWSDESK_RENDERS_PER_MINUTE": "30"}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("", envMap(tt.env))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.RendersPerMinute)
			assert.Equal(t, tt.expected > 0, cfg.RateLimitEnabled())
		})
	}
}

func TestLoad_InvalidEnvNumber(t *testing.T) {
	_, err := Load("", envMap(map[string]string{"NEWSDESK_PORT": "http"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEWSDESK_PORT")
}

func TestLoad_InvalidEnvBool(t *testing.T) {
	_, err := Load("", envMap(map[string]string{"NEWSDESK_RATE_LIMIT_ENABLED": "maybe"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_ENABLED")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		errPart string
	}{
		{"port out of range", func(c *Config) { c.Port = 70000 }, "'port'"},
		{"bad news url", func(c *Config) { c.NewsURL = "not a url" }, "'news_url'"},
		{"negative timeout", func(c *Config) { c.PhrasesTimeoutMS = -5 }, "'phrases_timeout_ms'"},
		{"unknown locale", func(c *Config) { c.Locale = "fr" }, "'locale'"},
		{"empty bold word", func(c *Config) { c.BoldWords = []string{""} }, "bold_words"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "'log_level'"},
		{"missing root dir", func(c *Config) { c.Root = "/nonexistent/static/root" }, "static root"},
		{"missing schema", func(c *Config) { c.NewsSchema = "/nonexistent/news.schema.json" }, "schema file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config error")
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := &Config{Port: 4000, Template: "page.html"}
	merged := cfg.MergeWithDefaults(Defaults())

	assert.Equal(t, 4000, merged.Port)
	assert.Equal(t, "page.html", merged.Template)
	assert.Equal(t, ".", merged.Root)
	assert.Equal(t, DefaultErrorLog, merged.ErrorLog)
	assert.Equal(t, DefaultTimeoutMS, merged.NewsTimeoutMS)
	assert.Equal(t, -1, merged.RendersPerMinute)
}

func TestTemplatePath(t *testing.T) {
	cfg := Defaults()
	cfg.Root = "/srv/site"
	assert.Equal(t, filepath.Join("/srv/site", "template.html"), cfg.TemplatePath())

	cfg.Template = "/etc/newsdesk/page.html"
	assert.Equal(t, "/etc/newsdesk/page.html", cfg.TemplatePath())
}
