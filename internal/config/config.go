// Package config provides configuration loading and validation for the server.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults for the reference deployment.
const (
	DefaultPort           = 3000
	DefaultNewsURL        = "http://slowpoke.desigens.com/json/1/7000"
	DefaultPhrasesURL     = "http://slowpoke.desigens.com/json/2/3000"
	DefaultTimeoutMS      = 6000
	DefaultTemplate       = "template.html"
	DefaultErrorLog       = "errors.log"
	DefaultErrorLogMaxMB  = 10
	DefaultLogLevel       = "info"
	DefaultLocale         = "ru"
	DefaultRendersPerMin  = 60 // used when limiting is switched on without a rate
	envPrefix             = "NEWSDESK_"
	rateLimitDisabledFlag = -1
)

// Config holds the server configuration. It can be loaded from a JSON file,
// overridden from NEWSDESK_* environment variables and finally from CLI flags.
// Zero values mean "use the default".
type Config struct {
	// Network
	Port int `json:"port,omitempty" validate:"min=1,max=65535"`

	// Files
	Root     string `json:"root,omitempty" validate:"required"`             // Static file root
	Template string `json:"template,omitempty" validate:"required"`         // Page template, relative to root unless absolute
	ErrorLog string `json:"error_log,omitempty" validate:"required"`        // Append-only upstream failure log
	MaxLogMB int    `json:"error_log_max_mb,omitempty" validate:"min=1"`    // Rotate error log past this size

	// Upstream feeds
	NewsURL          string `json:"news_url,omitempty" validate:"required,url"`
	PhrasesURL       string `json:"phrases_url,omitempty" validate:"required,url"`
	NewsTimeoutMS    int    `json:"news_timeout_ms,omitempty" validate:"gt=0"`
	PhrasesTimeoutMS int    `json:"phrases_timeout_ms,omitempty" validate:"gt=0"`
	NewsSchema       string `json:"news_schema,omitempty"`    // Optional JSON Schema for the news feed
	PhrasesSchema    string `json:"phrases_schema,omitempty"` // Optional JSON Schema for the phrase feed
	UserAgent        string `json:"user_agent,omitempty"`

	// Page helpers
	Locale    string   `json:"locale,omitempty" validate:"oneof=ru en"`
	BoldWords []string `json:"bold_words,omitempty" validate:"dive,required"`

	// Behavior
	LogLevel         string `json:"log_level,omitempty" validate:"oneof=trace debug info warn error"`
	RendersPerMinute int    `json:"renders_per_minute,omitempty" validate:"min=-1"` // -1 (default) disables rate limiting
	Verbose          bool   `json:"verbose,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:             DefaultPort,
		Root:             ".",
		Template:         DefaultTemplate,
		ErrorLog:         DefaultErrorLog,
		MaxLogMB:         DefaultErrorLogMaxMB,
		NewsURL:          DefaultNewsURL,
		PhrasesURL:       DefaultPhrasesURL,
		NewsTimeoutMS:    DefaultTimeoutMS,
		PhrasesTimeoutMS: DefaultTimeoutMS,
		Locale:           DefaultLocale,
		BoldWords:        []string{"привет", "privet"},
		LogLevel:         DefaultLogLevel,
		RendersPerMinute: rateLimitDisabledFlag,
	}
}

// Load builds the effective configuration: defaults, then the JSON file at
// path (if non-empty), then the environment. The result is not validated so
// that CLI flags can still be applied.
func Load(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if lookupEnv != nil {
		if err := cfg.ApplyEnv(lookupEnv); err != nil {
			return nil, err
		}
	}

	merged := cfg.MergeWithDefaults(Defaults())
	return &merged, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from NEWSDESK_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config error: invalid %s%s: %v", envPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("ROOT", &c.Root)
	str("TEMPLATE", &c.Template)
	str("ERROR_LOG", &c.ErrorLog)
	str("NEWS_URL", &c.NewsURL)
	str("PHRASES_URL", &c.PhrasesURL)
	str("NEWS_SCHEMA", &c.NewsSchema)
	str("PHRASES_SCHEMA", &c.PhrasesSchema)
	str("USER_AGENT", &c.UserAgent)
	str("LOCALE", &c.Locale)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup(envPrefix + "BOLD_WORDS"); ok && v != "" {
		c.BoldWords = splitList(v)
	}

	numErr := errors.Join(
		num("PORT", &c.Port),
		num("ERROR_LOG_MAX_MB", &c.MaxLogMB),
		num("NEWS_TIMEOUT_MS", &c.NewsTimeoutMS),
		num("PHRASES_TIMEOUT_MS", &c.PhrasesTimeoutMS),
		num("RENDERS_PER_MINUTE", &c.RendersPerMinute),
	)
	if numErr != nil {
		return numErr
	}

	// Rate limiting is off unless switched on here or by a positive rate.
	if v, ok := lookup(envPrefix + "RATE_LIMIT_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config error: invalid %sRATE_LIMIT_ENABLED: %v", envPrefix, err)
		}
		switch {
		case !enabled:
			c.RendersPerMinute = rateLimitDisabledFlag
		case c.RendersPerMinute <= 0:
			c.RendersPerMinute = DefaultRendersPerMin
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Root == "" {
		result.Root = defaults.Root
	}
	if result.Template == "" {
		result.Template = defaults.Template
	}
	if result.ErrorLog == "" {
		result.ErrorLog = defaults.ErrorLog
	}
	if result.NewsURL == "" {
		result.NewsURL = defaults.NewsURL
	}
	if result.PhrasesURL == "" {
		result.PhrasesURL = defaults.PhrasesURL
	}
	if result.NewsSchema == "" {
		result.NewsSchema = defaults.NewsSchema
	}
	if result.PhrasesSchema == "" {
		result.PhrasesSchema = defaults.PhrasesSchema
	}
	if result.UserAgent == "" {
		result.UserAgent = defaults.UserAgent
	}
	if result.Locale == "" {
		result.Locale = defaults.Locale
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if len(result.BoldWords) == 0 {
		result.BoldWords = defaults.BoldWords
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.MaxLogMB == 0 {
		result.MaxLogMB = defaults.MaxLogMB
	}
	if result.NewsTimeoutMS == 0 {
		result.NewsTimeoutMS = defaults.NewsTimeoutMS
	}
	if result.PhrasesTimeoutMS == 0 {
		result.PhrasesTimeoutMS = defaults.PhrasesTimeoutMS
	}
	if result.RendersPerMinute == 0 {
		result.RendersPerMinute = defaults.RendersPerMinute
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names so errors match the config file.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			fe := validationErrs[0]
			return fmt.Errorf("config error: '%s' failed '%s' check (value: %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}

	// Validate file paths exist (if specified)
	if info, err := os.Stat(c.Root); err != nil || !info.IsDir() {
		return fmt.Errorf("config error: static root is not a directory: %s", c.Root)
	}
	for _, schema := range []string{c.NewsSchema, c.PhrasesSchema} {
		if schema == "" {
			continue
		}
		if _, err := os.Stat(schema); os.IsNotExist(err) {
			return fmt.Errorf("config error: schema file not found: %s", schema)
		}
	}

	return nil
}

// TemplatePath returns the template location, resolved against Root when relative.
func (c *Config) TemplatePath() string {
	if filepath.IsAbs(c.Template) {
		return c.Template
	}
	return filepath.Join(c.Root, c.Template)
}

// NewsTimeout returns the news feed budget.
func (c *Config) NewsTimeout() time.Duration {
	return time.Duration(c.NewsTimeoutMS) * time.Millisecond
}

// PhrasesTimeout returns the phrase feed budget.
func (c *Config) PhrasesTimeout() time.Duration {
	return time.Duration(c.PhrasesTimeoutMS) * time.Millisecond
}

// RateLimitEnabled reports whether page renders are rate limited.
func (c *Config) RateLimitEnabled() bool {
	return c.RendersPerMinute > 0
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
