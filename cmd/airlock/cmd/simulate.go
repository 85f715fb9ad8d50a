package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/airlock-sh/airlock/internal/audit"
	"github.com/airlock-sh/airlock/internal/engine/intent"
)

var simulateIntentPath string

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Plan and dry-run an intent without executing",
	Long: `Generates the execution plan for an intent and simulates it against
the live system. Nothing is mutated; the plan, step risks, and the
per-step simulation outcomes are printed.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simulateIntentPath, "intent", "", "path to the intent JSON file (required)")
	_ = simulateCmd.MarkFlagRequired("intent")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("loading config", err)
		return err
	}
	logger := newLogger(cfg)

	trail := audit.NewMemoryTrail()
	defer trail.Close()

	svc, err := newService(cfg, trail, logger)
	if err != nil {
		printError("assembling engine", err)
		return err
	}

	f, err := readIntentFile(simulateIntentPath)
	if err != nil {
		printError("reading intent", err)
		return err
	}

	sub, err := svc.Submit(context.Background(), intent.Verb(f.Verb), f.Target, f.Parameters, intent.SafetyLevel(f.SafetyLevel))
	if err != nil {
		printError("submitting intent", err)
		return err
	}
	return printJSON(sub)
}
