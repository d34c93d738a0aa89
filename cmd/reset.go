package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the persisted workflow",
	Long: `Clear the persisted workflow slot, returning the tracker to the form
step with no report. The recent-reports cache survives a reset.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetForce {
		fmt.Printf("Reset workflow slot %q in %s? [y/N] ", cfg.SlotKey, cfg.StorePath)
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(strings.ToLower(line)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	db, tr, err := openTracker()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tr.ResetWorkflow()
	tr.Close()

	fmt.Println("Workflow reset.")
	return nil
}
