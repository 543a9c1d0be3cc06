package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/podshell/internal/config"
	"github.com/GriffinCanCode/podshell/internal/logging"
	"github.com/GriffinCanCode/podshell/internal/server"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadOrDefault()

	// Parse flags (override env vars)
	port := flag.String("port", cfg.Server.Port, "Server port")
	kubeconfig := flag.String("kubeconfig", cfg.Kube.ConfigPath, "Path to kubeconfig (defaults to $KUBECONFIG or ~/.kube/config)")
	logLevel := flag.String("log-level", cfg.Logging.Level, "Log level: debug, info, warn, error")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development mode (colored logs)")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Kube.ConfigPath = *kubeconfig
	cfg.Logging.Level = *logLevel
	cfg.Logging.Development = *dev

	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	logCfg.Level = cfg.Logging.Level
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log configuration: %v\n", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("Error during shutdown", zap.Error(err))
	}
}
