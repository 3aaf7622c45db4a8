package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/modeshift-ai/modeshift/pkg/budget"
	"github.com/modeshift-ai/modeshift/pkg/config"
	"github.com/modeshift-ai/modeshift/pkg/models"
	"github.com/modeshift-ai/modeshift/pkg/tracker"
)

func newBudgetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage token budgets and policies",
	}

	var purpose string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show budget usage vs limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if !cfg.Budget.Enabled {
				fmt.Println("Budget enforcement is disabled.")
				return nil
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			enforcer := budget.New(cfg.Budget.Policies, tr)

			p := purpose
			if p == "" {
				p = "*"
			}

			statuses, err := enforcer.Status(context.Background(), models.Purpose(p))
			if err != nil {
				return err
			}

			if len(statuses) == 0 {
				fmt.Println("No budget policies found for this purpose.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PURPOSE\tPERIOD\tMAX UNITS\tUSED\tREMAINING")
			for _, s := range statuses {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
					s.Policy.Purpose, s.Policy.Period, s.Policy.MaxUnits, s.Used, s.Remaining)
			}
			return w.Flush()
		},
	}
	statusCmd.Flags().StringVar(&purpose, "purpose", "", "filter by purpose")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "modeshift.yaml", "path to config file")
	cmd.AddCommand(statusCmd)
	return cmd
}
