package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsdesk/internal/observability"
	"github.com/jonathan/newsdesk/internal/server"
	"github.com/jonathan/newsdesk/internal/server/ratelimit"
)

var serveFlags configFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the page server",
	Long: `Start an HTTP server that renders the news page at / and serves every other path
from the static root.

Configuration can be loaded from a JSON file using --config, then NEWSDESK_* environment
variables. Command-line arguments override both.`,
	RunE: runServe,
}

func init() {
	serveFlags.register(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := serveFlags.resolve(cmd, os.LookupEnv)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		observability.NewPrinter(cmd.OutOrStdout()).PrintSettings(settings(cfg))
	}

	deps, err := buildComponents(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close() }()

	srv, err := server.New(server.Config{Port: cfg.Port}, server.Dependencies{
		Logger:      deps.logger,
		Renderer:    deps.renderer,
		Aggregator:  deps.aggregator,
		Files:       deps.files,
		RateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig(cfg.RendersPerMinute, os.LookupEnv)),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
