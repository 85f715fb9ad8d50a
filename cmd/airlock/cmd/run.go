package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/airlock-sh/airlock/internal/audit"
	"github.com/airlock-sh/airlock/internal/engine/intent"
	"github.com/airlock-sh/airlock/internal/engine/simulate"
)

var (
	runIntentPath string
	runApprove    bool
	runStorePath  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one intent through the full pipeline",
	Long: `Reads an intent from a JSON file, plans and simulates it, and prints
the simulation report.

Without --approve the pipeline stops there: nothing has been mutated
and the plan can wait for approval indefinitely. With --approve a token
bound to the (plan, report) pair is minted and the plan is executed.

Intent file format:
  {
    "verb": "write",
    "target": "/tmp/out.txt",
    "parameters": {"content": "hi"},
    "safety_level": "standard"
  }`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runIntentPath, "intent", "", "path to the intent JSON file (required)")
	runCmd.Flags().BoolVar(&runApprove, "approve", false, "approve and execute after simulation")
	runCmd.Flags().StringVar(&runStorePath, "store", "", "sqlite trail path (default: in-memory for one-shot runs)")
	_ = runCmd.MarkFlagRequired("intent")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("loading config", err)
		return err
	}
	logger := newLogger(cfg)

	trail, err := openRunTrail()
	if err != nil {
		printError("opening audit trail", err)
		return err
	}
	defer trail.Close()

	svc, err := newService(cfg, trail, logger)
	if err != nil {
		printError("assembling engine", err)
		return err
	}

	f, err := readIntentFile(runIntentPath)
	if err != nil {
		printError("reading intent", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := svc.Submit(ctx, intent.Verb(f.Verb), f.Target, f.Parameters, intent.SafetyLevel(f.SafetyLevel))
	if err != nil {
		printError("submitting intent", err)
		return err
	}

	if err := printJSON(sub.Report); err != nil {
		return err
	}

	if !runApprove {
		fmt.Fprintf(os.Stderr, "plan %s simulated (%s); re-run with --approve to execute\n",
			sub.Plan.ID, sub.Report.Status)
		return nil
	}
	if sub.Report.Status != simulate.StatusSuccess {
		err := fmt.Errorf("simulation status is %s", sub.Report.Status)
		printError("refusing approval", err)
		return err
	}

	tok, err := svc.Approve(sub.Plan.ID)
	if err != nil {
		printError("issuing approval", err)
		return err
	}
	res, err := svc.Execute(ctx, sub.Plan.ID, tok)
	if err != nil {
		printError("executing plan", err)
		return err
	}
	if err := printJSON(res); err != nil {
		return err
	}
	if !res.Succeeded() {
		return fmt.Errorf("execution finished %s: %s", res.Status, res.Error)
	}
	return nil
}

func openRunTrail() (audit.Trail, error) {
	if runStorePath == "" {
		return audit.NewMemoryTrail(), nil
	}
	return audit.NewSQLiteTrail(audit.SQLiteConfig{Path: runStorePath})
}
