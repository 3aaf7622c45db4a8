package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "modeshift",
		Short:   "LLM orchestration and structured-extraction engine",
		Version: version,
	}

	root.AddCommand(
		newGenerateCmd(),
		newModelsCmd(),
		newStatsCmd(),
		newCostCmd(),
		newCacheCmd(),
		newBudgetCmd(),
		newAuditCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
