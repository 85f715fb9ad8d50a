package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/airlock-sh/airlock/internal/engine/target"
	"github.com/airlock-sh/airlock/pkg/core/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("airlock v%s\n", info.Version)
		fmt.Printf("  Git Commit: %s\n", info.Commit)
		fmt.Printf("  Build Time: %s\n", info.BuildTime)
		fmt.Printf("  Go Version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Printf("  Contract:   v%d\n", target.ContractVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
