package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/airlock-sh/airlock/internal/audit"
	"github.com/airlock-sh/airlock/internal/engine/intent"
	"github.com/airlock-sh/airlock/internal/engine/plan"
	"github.com/airlock-sh/airlock/internal/engine/service"
	"github.com/airlock-sh/airlock/pkg/core/config"
	"github.com/airlock-sh/airlock/pkg/core/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "airlock",
	Short: "airlock - staged command execution with mandatory dry run",
	Long: `airlock plans, simulates, gates, and executes filesystem commands.

Every intent passes through the same pipeline:
  plan      - decompose into risk-classified steps with rollback procedures
  simulate  - dry-run every precondition against the live system
  gate      - admission checks incl. approval token and idempotency
  execute   - apply step by step, rolling back in reverse on failure
  audit     - append every artifact to the immutable trail`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
}

// loadConfig resolves configuration from --config or the environment.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.LoadFromEnv()
}

// newLogger builds the root logger from config and the --verbose flag.
func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.General.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.NewWithConfig(logging.Config{
		Name:   cfg.General.Name,
		Level:  level,
		Format: cfg.General.LogFormat,
		Output: os.Stderr,
	})
}

// loadPolicy reads the configured policy pack, or nil for the built-in
// table.
func loadPolicy(cfg *config.Config) (*plan.Policy, error) {
	if cfg.Policy.PackPath == "" {
		return nil, nil
	}
	return plan.LoadPolicy(cfg.Policy.PackPath)
}

// newService assembles the engine with the given trail.
func newService(cfg *config.Config, trail audit.Trail, logger *logging.Logger) (*service.Service, error) {
	policy, err := loadPolicy(cfg)
	if err != nil {
		return nil, err
	}
	return service.New(service.Options{
		Policy:      policy,
		Trail:       trail,
		StepTimeout: cfg.Engine.StepTimeout.Duration,
		Logger:      logger,
	}), nil
}

// intentFile is the on-disk shape accepted by run and simulate.
type intentFile struct {
	Verb        string            `json:"verb"`
	Target      string            `json:"target"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	SafetyLevel string            `json:"safety_level,omitempty"`
}

func readIntentFile(path string) (intentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return intentFile{}, fmt.Errorf("read intent file: %w", err)
	}
	var f intentFile
	if err := json.Unmarshal(data, &f); err != nil {
		return intentFile{}, fmt.Errorf("parse intent file: %w", err)
	}
	if f.SafetyLevel == "" {
		f.SafetyLevel = string(intent.SafetyStandard)
	}
	return f, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
