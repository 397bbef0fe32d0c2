// Package cmd defines the issueradar command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "issueradar",
	Short: "Discover and classify software defect reports from the web",
	Long: `issueradar crawls forums and web search results for defect reports
about monitored applications, classifies each report with an LLM, and stores
the results with embeddings for semantic search.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (env ISSUERADAR_* always applies)")
}
