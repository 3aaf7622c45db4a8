package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/modeshift-ai/modeshift/pkg/config"
	"github.com/modeshift-ai/modeshift/pkg/registry"
)

func newModelsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List configured models and their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			reg := registry.New(cfg.Models)
			descriptors := reg.List()
			if len(descriptors) == 0 {
				fmt.Println("No models configured.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODEL\tACTIVE\tDEFAULT FOR\tFALLBACK\tCAPABILITIES\t$/1K IN\t$/1K OUT")
			for _, d := range descriptors {
				caps := make([]string, len(d.Capabilities))
				for i, c := range d.Capabilities {
					caps[i] = string(c)
				}
				purposes := make([]string, len(d.DefaultFor))
				for i, p := range d.DefaultFor {
					purposes[i] = string(p)
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\t%.4f\t%.4f\n",
					d.Provider, d.Model, d.Active,
					strings.Join(purposes, ","),
					d.FallbackModel,
					strings.Join(caps, ","),
					d.InputCostPer1K, d.OutputCostPer1K)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "modeshift.yaml", "path to config file")
	return cmd
}
