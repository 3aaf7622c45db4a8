package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/modeshift-ai/modeshift/pkg/config"
	"github.com/modeshift-ai/modeshift/pkg/tracker"
)

func newStatsCmd() *cobra.Command {
	var (
		configPath string
		purpose    string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics by purpose and model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			summaries, err := tr.Summary(context.Background(), purpose)
			if err != nil {
				return err
			}

			if len(summaries) == 0 {
				fmt.Println("No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PURPOSE\tMODEL\tREQUESTS\tCACHE HITS\tERRORS\tINPUT\tOUTPUT")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
					s.Purpose, s.Model, s.RequestCount, s.CacheHits, s.Errors, s.TotalInput, s.TotalOutput)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "modeshift.yaml", "path to config file")
	cmd.Flags().StringVar(&purpose, "purpose", "", "filter by purpose")
	return cmd
}
