package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/issueradar/crawler/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only HTTP API and metrics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, configPath)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.NewServer().ListenAndServe(ctx, a.Config.Server.Port)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
