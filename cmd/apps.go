package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/issueradar/crawler/internal/app"
)

var listAppsCmd = &cobra.Command{
	Use:   "list-apps",
	Short: "List monitored applications",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app.New(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		defer a.Close()

		apps, err := a.Applications.ListAll(cmd.Context())
		if err != nil {
			return err
		}
		if len(apps) == 0 {
			fmt.Println("No applications configured. Add one with add-app.")
			return nil
		}
		for _, appRecord := range apps {
			keywords := appRecord.Keywords
			suffix := ""
			if len(keywords) > 3 {
				keywords = keywords[:3]
				suffix = ", ..."
			}
			fmt.Printf("%s  %s (%s)  keywords: %s%s\n",
				appRecord.ID, appRecord.Name, appRecord.Vendor,
				strings.Join(keywords, ", "), suffix)
		}
		return nil
	},
}

var (
	addAppName     string
	addAppVendor   string
	addAppKeywords string
)

var addAppCmd = &cobra.Command{
	Use:   "add-app",
	Short: "Register an application to monitor",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var keywords []string
		for _, k := range strings.Split(addAppKeywords, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		if addAppName == "" || len(keywords) == 0 {
			return fmt.Errorf("--name and at least one --keywords entry are required")
		}

		a, err := app.New(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		defer a.Close()

		created, err := a.Applications.Create(cmd.Context(), addAppName, addAppVendor, keywords)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s)\n", created.Name, created.ID)
		return nil
	},
}

func init() {
	addAppCmd.Flags().StringVar(&addAppName, "name", "", "application name")
	addAppCmd.Flags().StringVar(&addAppVendor, "vendor", "", "vendor name")
	addAppCmd.Flags().StringVar(&addAppKeywords, "keywords", "", "comma-separated search keywords")
	rootCmd.AddCommand(listAppsCmd, addAppCmd)
}
