package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsdesk/internal/config"
)

// configFlags are the configuration flags shared by serve and check.
type configFlags struct {
	configPath string
	port       int
	root       string
	template   string
	newsURL    string
	phrasesURL string
	timeoutMS  int
	logLevel   string
	verbose    bool
}

func (f *configFlags) register(cmd *cobra.Command) {
	// Config file flag (processed first)
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	cmd.Flags().IntVarP(&f.port, "port", "p", config.DefaultPort, "Port to listen on")
	cmd.Flags().StringVarP(&f.root, "root", "r", ".", "Directory served as static files")
	cmd.Flags().StringVarP(&f.template, "template", "t", config.DefaultTemplate, "Page template, relative to --root unless absolute")
	cmd.Flags().StringVar(&f.newsURL, "news-url", config.DefaultNewsURL, "News feed URL")
	cmd.Flags().StringVar(&f.phrasesURL, "phrases-url", config.DefaultPhrasesURL, "Phrase feed URL")
	cmd.Flags().IntVar(&f.timeoutMS, "timeout", config.DefaultTimeoutMS, "Timeout in milliseconds applied to both feeds")
	cmd.Flags().StringVar(&f.logLevel, "log-level", config.DefaultLogLevel, "Log level (trace, debug, info, warn, error)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print detailed settings on start")
}

// resolve builds the effective configuration: defaults, config file,
// environment, then explicitly set flags. The result is validated.
func (f *configFlags) resolve(cmd *cobra.Command, lookupEnv func(string) (string, bool)) (*config.Config, error) {
	// Step 1: defaults, config file and environment
	cfg, err := config.Load(f.configPath, lookupEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("port") {
		cfg.Port = f.port
	}
	if cmd.Flags().Changed("root") {
		cfg.Root = f.root
	}
	if cmd.Flags().Changed("template") {
		cfg.Template = f.template
	}
	if cmd.Flags().Changed("news-url") {
		cfg.NewsURL = f.newsURL
	}
	if cmd.Flags().Changed("phrases-url") {
		cfg.PhrasesURL = f.phrasesURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.NewsTimeoutMS = f.timeoutMS
		cfg.PhrasesTimeoutMS = f.timeoutMS
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = f.verbose
	}

	// Step 3: Validate the merged result
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
