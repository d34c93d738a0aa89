package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var recentFormat string

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently completed reports",
	Long: `Print the recent-reports cache from the persisted workflow slot,
newest first. The cache holds at most ten reports, deduplicated by id.`,
	RunE: runRecent,
}

func init() {
	recentCmd.Flags().StringVar(&recentFormat, "format", "text", "output format: text, json, or yaml")
	rootCmd.AddCommand(recentCmd)
}

func runRecent(cmd *cobra.Command, args []string) error {
	db, tr, err := openTracker()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	defer tr.Close()

	reports := tr.State().RecentReports

	switch recentFormat {
	case "text":
		if len(reports) == 0 {
			fmt.Println("No completed reports yet.")
			return nil
		}
		for _, r := range reports {
			completed := "-"
			if !r.CompletedAt.IsZero() {
				completed = r.CompletedAt.Format("2006-01-02 15:04")
			}
			fmt.Printf("%-12s  %-24s  %-24s  %s\n", r.ID, r.VendorName, r.CustomerName, completed)
		}
		return nil

	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)

	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(reports)

	default:
		return fmt.Errorf("unknown format %q (expected text, json, or yaml)", recentFormat)
	}
}
