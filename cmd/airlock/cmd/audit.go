package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/airlock-sh/airlock/internal/audit"
)

var (
	auditLimit int
	auditKind  string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit records",
	RunE:  runAuditList,
}

var auditShowCmd = &cobra.Command{
	Use:   "show <plan-id>",
	Short: "Show all records for one plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditShow,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditShowCmd)
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum number of records")
	auditListCmd.Flags().StringVar(&auditKind, "kind", "", "filter by record kind (intent, plan, report, result)")
}

func openConfiguredTrail() (audit.Trail, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return audit.NewSQLiteTrail(audit.SQLiteConfig{Path: cfg.Audit.StorePath})
}

func runAuditList(cmd *cobra.Command, args []string) error {
	trail, err := openConfiguredTrail()
	if err != nil {
		printError("opening audit trail", err)
		return err
	}
	defer trail.Close()

	recs, err := trail.Query(context.Background(), audit.Filter{
		Kind:  audit.RecordKind(auditKind),
		Limit: auditLimit,
	})
	if err != nil {
		printError("querying trail", err)
		return err
	}
	return printJSON(recs)
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	trail, err := openConfiguredTrail()
	if err != nil {
		printError("opening audit trail", err)
		return err
	}
	defer trail.Close()

	recs, err := trail.Query(context.Background(), audit.Filter{PlanID: args[0]})
	if err != nil {
		printError("querying trail", err)
		return err
	}
	if len(recs) == 0 {
		return fmt.Errorf("no audit records for plan %s", args[0])
	}
	return printJSON(recs)
}
