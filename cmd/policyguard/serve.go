package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	server "policyguard/internal/http"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scan API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	logger, err := setupLogger(cmd, os.Stdout)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	svc, classifier, err := buildScanner(cfg, logger)
	if err != nil {
		return err
	}

	s := server.NewServer(cfg, svc, classifier, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("received shutdown signal, stopping server")
		if err := s.Shutdown(); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	return s.Listen()
}
