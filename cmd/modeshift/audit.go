package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/modeshift-ai/modeshift/pkg/audit"
	"github.com/modeshift-ai/modeshift/pkg/config"
	"github.com/modeshift-ai/modeshift/pkg/models"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and manage the generation audit log",
	}

	cmd.AddCommand(
		newAuditSearchCmd(),
		newAuditShowCmd(),
		newAuditStatsCmd(),
		newAuditCleanupCmd(),
	)
	return cmd
}

func openAuditLogger(configPath string) (*audit.Logger, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Audit.Enabled {
		return nil, nil, fmt.Errorf("audit logging is disabled in %s", configPath)
	}
	l, err := audit.New(cfg.Audit)
	if err != nil {
		return nil, nil, err
	}
	return l, func() { _ = l.Close() }, nil
}

func newAuditSearchCmd() *cobra.Command {
	var (
		configPath string
		purpose    string
		model      string
		since      string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search audit log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.AuditQueryOpts{
				Purpose: purpose,
				Model:   model,
				Limit:   limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := l.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			fmt.Print(formatAuditEntries(entries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "modeshift.yaml", "path to config file")
	cmd.Flags().StringVar(&purpose, "purpose", "", "filter by purpose")
	cmd.Flags().StringVar(&model, "model", "", "filter by model")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")

	return cmd
}

func newAuditShowCmd() *cobra.Command {
	var (
		configPath string
		requestID  string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a single audit entry by request ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			if requestID == "" {
				return fmt.Errorf("--request-id is required")
			}

			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := l.Query(context.Background(), models.AuditQueryOpts{
				RequestID: requestID,
				Limit:     1,
			})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No entry found for that request ID.")
				return nil
			}

			e := entries[0]
			fmt.Printf("Request ID:    %s\n", e.RequestID)
			fmt.Printf("Purpose:       %s\n", e.Purpose)
			fmt.Printf("Provider:      %s\n", e.Provider)
			fmt.Printf("Model:         %s\n", e.Model)
			fmt.Printf("Strategy:      %s\n", e.Strategy)
			fmt.Printf("Cached:        %t\n", e.Cached)
			fmt.Printf("Fallback used: %t\n", e.FallbackUsed)
			fmt.Printf("Tokens:        %d in / %d out\n", e.InputTokens, e.OutputTokens)
			fmt.Printf("Latency:       %dms\n", e.LatencyMs)
			if e.ErrorKind != "" {
				fmt.Printf("Error kind:    %s\n", e.ErrorKind)
			}
			fmt.Printf("Created:       %s\n", e.CreatedAt.Format(time.RFC3339))
			if e.Prompt != "" {
				fmt.Printf("\n--- Prompt ---\n%s\n", e.Prompt)
			}
			if e.Response != "" {
				fmt.Printf("\n--- Response ---\n%s\n", e.Response)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "modeshift.yaml", "path to config file")
	cmd.Flags().StringVar(&requestID, "request-id", "", "request ID to show")

	return cmd
}

func newAuditStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show audit entry counts by model and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := l.Stats(context.Background())
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Println("No audit entries found.")
				return nil
			}
			for _, s := range stats {
				fmt.Printf("%s  %-30s %d\n", s.Day, s.Model, s.Count)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "modeshift.yaml", "path to config file")
	return cmd
}

func newAuditCleanupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete audit entries past the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.Cleanup(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d entries.\n", deleted)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "modeshift.yaml", "path to config file")
	return cmd
}

func formatAuditEntries(entries []models.AuditEntry) string {
	if len(entries) == 0 {
		return "No audit entries found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %-20s %-25s %-8s %6s %8s\n",
		"REQUEST ID", "PURPOSE", "MODEL", "STRATEGY", "CACHED", "LATENCY")
	b.WriteString(strings.Repeat("-", 108) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%-36s %-20s %-25s %-8s %6t %6dms\n",
			e.RequestID, e.Purpose, e.Model, e.Strategy, e.Cached, e.LatencyMs)
	}
	return b.String()
}
