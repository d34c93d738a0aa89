// Package cmd wires the povtrack CLI.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zjrosen/povtrack/internal/config"
	"github.com/zjrosen/povtrack/internal/infrastructure/sqlite"
	"github.com/zjrosen/povtrack/internal/log"
	"github.com/zjrosen/povtrack/internal/mode/tracker"
	"github.com/zjrosen/povtrack/internal/report"
	"github.com/zjrosen/povtrack/internal/report/api"
	"github.com/zjrosen/povtrack/internal/telemetry"
	"github.com/zjrosen/povtrack/internal/ui/styles"
	"github.com/zjrosen/povtrack/internal/workflow"
)

var (
	cfgPath string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "povtrack",
	Short: "Track POV report generation from your terminal",
	Long: `povtrack is a terminal workflow tracker for the POV report generation
process. It mirrors the form, titles, and outcomes steps of a report, persists
your position across sessions, and keeps a shortlist of recently completed
reports for quick deep links.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		logPath := cfg.Log.Path
		if logPath == "" {
			logPath = filepath.Join(config.DefaultDataDir(), "povtrack.log")
		}
		if err := log.Init(logPath, log.ParseLevel(cfg.Log.Level)); err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}

		return styles.ApplyTheme(styles.ThemeConfig{
			Mode:   cfg.Theme.Mode,
			Preset: cfg.Theme.Preset,
			Colors: cfg.Theme.Colors,
		})
	},
	RunE: runTracker,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.povtrack/config.yaml)")
}

// Execute runs the CLI.
func Execute() {
	defer log.Close()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runTracker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tp, err := telemetry.Init(ctx, cfg.Telemetry, filepath.Dir(cfg.StorePath))
	if err != nil {
		return err
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	db, tr, err := openTracker()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	defer tr.Close()

	bridge := report.NewBridge(newClient(), report.StaticIdentity(cfg.UserID))
	nav := workflow.NewNavigator(tr, bridge)

	var watcher *tracker.StoreWatcher
	if cfg.AutoRefresh {
		watcher, err = tracker.NewStoreWatcher(cfg.StorePath, db.SlotRepository(), cfg.SlotKey, cfg.AutoRefreshDebounce)
		if err != nil {
			log.ErrorErr(log.CatUI, "Store watcher unavailable, auto refresh disabled", err)
		} else {
			defer func() { _ = watcher.Close() }()
		}
	}

	model := tracker.New(cfg, tr, nav, bridge, watcher)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running tracker: %w", err)
	}
	return nil
}

// openTracker opens the slot store and returns a hydrated tracker over it.
func openTracker() (*sqlite.DB, *workflow.Tracker, error) {
	db, err := sqlite.NewDB(cfg.StorePath)
	if err != nil {
		return nil, nil, err
	}

	tr := workflow.NewTracker(db.SlotRepository(), cfg.SlotKey,
		workflow.WithPersistDebounce(cfg.PersistDebounce))
	tr.Hydrate()
	return db, tr, nil
}

// newClient builds the report API client with the configured cache layer.
func newClient() report.Client {
	return report.NewCachingClient(api.New(cfg.API), cfg.API.CacheTTL)
}
