package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"policyguard/internal/config"
	"policyguard/internal/detect"
	"policyguard/internal/scan"
	"policyguard/internal/scraper"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policyguard",
		Short: "Website compliance scanner",
		Long: `PolicyGuard crawls a site one hop deep, checks for required legal pages,
screens content posts for policy violations and reports an advisory score.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().StringP("config", "c", "config/config.yaml", "path to config file")
	cmd.PersistentFlags().String("log-level", "info", "log level: debug|info|warn|error")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewScanCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func setupLogger(cmd *cobra.Command, w io.Writer) (*slog.Logger, error) {
	raw, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}
	level, err := parseLevel(raw)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// buildScanner wires fetcher, classifier and orchestrator from cfg.
func buildScanner(cfg *config.Config, logger *slog.Logger) (*scan.Service, detect.Classifier, error) {
	classifier, err := detect.NewClassifierFromConfig(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("configure semantic analysis: %w", err)
	}
	fetcher := scraper.NewFetcherFromConfig(cfg, logger)
	svc := scan.NewService(fetcher, classifier, scan.OptionsFromConfig(cfg.Scan), logger)
	return svc, classifier, nil
}
