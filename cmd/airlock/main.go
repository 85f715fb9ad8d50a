package main

import (
	"os"

	"github.com/airlock-sh/airlock/cmd/airlock/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
