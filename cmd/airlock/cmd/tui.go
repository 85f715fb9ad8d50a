package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/airlock-sh/airlock/internal/audit"
	"github.com/airlock-sh/airlock/internal/tui/auditviewer"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive audit trail viewer",
	Long: `Opens the audit trail in an interactive terminal viewer.

Keys:
  a/s/r/n   - filter: all / succeeded / rolled back / no rollback
  p         - pause auto-refresh
  enter     - refresh now
  q         - quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("loading config", err)
		return err
	}

	trail, err := audit.NewSQLiteTrail(audit.SQLiteConfig{Path: cfg.Audit.StorePath})
	if err != nil {
		printError("opening audit trail", err)
		return err
	}
	defer trail.Close()

	p := tea.NewProgram(
		auditviewer.New(trail, auditviewer.DefaultConfig()),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
		return err
	}
	return nil
}
