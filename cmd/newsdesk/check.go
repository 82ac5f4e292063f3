package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsdesk/internal/observability"
)

var checkFlags configFlags

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fetch both feeds once and summarize them",
	Long: `Run a single aggregation with the same configuration the server would use and print
which feeds arrived in time. Feed failures are reported, not returned as errors; only
configuration problems make the command fail.`,
	RunE: runCheck,
}

func init() {
	checkFlags.register(checkCmd)
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := checkFlags.resolve(cmd, os.LookupEnv)
	if err != nil {
		return err
	}

	deps, err := buildComponents(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close() }()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if cfg.Verbose {
		printer.PrintSettings(settings(cfg))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	data := deps.aggregator.Aggregate(deps.logger.WithContext(ctx))

	printer.PrintFeed("news", data.News)
	printer.PrintFeed("phrases", data.Phrases)
	return nil
}
