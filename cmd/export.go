package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/povtrack/internal/workflow"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the tracked report",
	Long: `Render the currently tracked report (form, selected titles, outcomes,
and summary) as markdown or yaml.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "markdown", "output format: markdown or yaml")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	db, tr, err := openTracker()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	defer tr.Close()

	state := tr.State()
	if !state.HasReport() {
		return fmt.Errorf("no tracked report to export")
	}

	tr.SetLoading(map[workflow.LoadingFlag]bool{workflow.LoadingExporting: true})
	defer tr.SetLoading(map[workflow.LoadingFlag]bool{workflow.LoadingExporting: false})

	var out []byte
	switch exportFormat {
	case "markdown", "md":
		out = []byte(renderMarkdown(state.ReportData))
	case "yaml":
		out, err = yaml.Marshal(state.ReportData)
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q (expected markdown or yaml)", exportFormat)
	}

	if exportOut == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(exportOut, out, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", exportOut, err)
	}
	fmt.Printf("Exported report %s to %s\n", state.ReportData.ReportID, exportOut)
	return nil
}

// renderMarkdown flattens the working report data into a markdown document.
func renderMarkdown(data workflow.ReportData) string {
	var b strings.Builder

	title := "POV Report"
	if form := data.FormData; form != nil && form.VendorName != "" {
		title = fmt.Sprintf("POV Report: %s for %s", form.VendorName, form.TargetCustomerName)
	}
	b.WriteString("# " + title + "\n\n")

	if form := data.FormData; form != nil {
		b.WriteString("## Engagement\n\n")
		b.WriteString(fmt.Sprintf("- Vendor: %s (%s)\n", form.VendorName, form.VendorURL))
		b.WriteString(fmt.Sprintf("- Customer: %s (%s)\n", form.TargetCustomerName, form.TargetCustomerURL))
		if form.RoleNames != "" {
			b.WriteString(fmt.Sprintf("- Roles: %s\n", form.RoleNames))
		}
		b.WriteString("\n")
	}

	if len(data.Titles) > 0 {
		b.WriteString("## Selected Titles\n\n")
		selected := 0
		for _, t := range data.Titles {
			if t.Selected {
				b.WriteString("- " + t.Title + "\n")
				selected++
			}
		}
		if selected == 0 {
			b.WriteString("(none selected)\n")
		}
		b.WriteString("\n")
	}

	if len(data.Outcomes) > 0 {
		b.WriteString("## Outcomes\n\n")
		for _, o := range data.Outcomes {
			body := o.Content
			if body == "" {
				body = o.Title
			}
			b.WriteString(body + "\n\n")
		}
	}

	if data.Summary != nil {
		b.WriteString("## Summary\n\n")
		b.WriteString(*data.Summary + "\n")
	}

	return b.String()
}
