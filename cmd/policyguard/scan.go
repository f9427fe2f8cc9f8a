package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Scan one site and print the report as JSON",
		Long: `Scan fetches the homepage, crawls one hop of same-host links, analyzes
the content posts it finds and prints the site report.

Examples:
  policyguard scan https://example.com
  policyguard scan --pretty https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}

	cmd.Flags().BoolP("pretty", "p", false, "indent the JSON report")

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	// Logs go to stderr so stdout carries only the report.
	logger, err := setupLogger(cmd, os.Stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pretty, err := cmd.Flags().GetBool("pretty")
	if err != nil {
		return err
	}

	svc, _, err := buildScanner(cfg, logger)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := svc.Scan(ctx, args[0])
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(report)
}
