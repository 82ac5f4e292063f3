// Package main provides the entry point for the newsdesk page server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "newsdesk",
	Short: "News page server",
	Long: `newsdesk serves static files and renders a single page that combines a news feed
and a phrase feed fetched concurrently from remote JSON endpoints.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
