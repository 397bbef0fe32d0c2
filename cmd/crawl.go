package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/issueradar/crawler/internal/app"
	"github.com/issueradar/crawler/internal/metrics"
	"github.com/issueradar/crawler/internal/progress"
	"github.com/issueradar/crawler/internal/tracker"
)

var crawlAppName string

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run the crawl pipeline for one or all applications",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, configPath)
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.NewCrawler(ctx, progress.Stdout())
		if err != nil {
			return err
		}

		metrics.ObserveRun()

		if crawlAppName != "" {
			appRecord, err := findApplicationByName(ctx, a.Applications, crawlAppName)
			if err != nil {
				return err
			}
			count, err := c.CrawlApplication(ctx, appRecord.ID)
			if err != nil {
				return err
			}
			fmt.Printf("Done. %d new issues.\n", count)
			return nil
		}

		summary, err := c.CrawlAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Done. %d new issues across %d applications.\n", summary.TotalNew, len(summary.Results))
		return nil
	},
}

// findApplicationByName matches case-insensitively on the stored name.
func findApplicationByName(ctx context.Context, store tracker.ApplicationStore, name string) (tracker.Application, error) {
	apps, err := store.ListAll(ctx)
	if err != nil {
		return tracker.Application{}, fmt.Errorf("list applications: %w", err)
	}
	for _, appRecord := range apps {
		if strings.EqualFold(appRecord.Name, name) {
			return appRecord, nil
		}
	}
	return tracker.Application{}, fmt.Errorf("application %q not found; run list-apps to see known applications", name)
}

func init() {
	crawlCmd.Flags().StringVar(&crawlAppName, "app", "", "crawl only the named application")
	rootCmd.AddCommand(crawlCmd)
}
