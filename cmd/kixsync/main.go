package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bhandras/kixsync/internal/cli"
	"github.com/bhandras/kixsync/internal/config"
	"github.com/bhandras/kixsync/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		} else {
			logger.Errorf("%v", err)
		}
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	args, err := parseFlags(cfg, os.Args[1:])
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.LogLevel)
	if cfg.Debug {
		logger.Debugf("Config: DocURL=%s Timeout=%s PollTimeout=%s",
			cfg.DocURL, cfg.Timeout, cfg.PollTimeout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Run(ctx, cfg, args, os.Stdout)
}

func parseFlags(cfg *config.Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("kixsync", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	logLevel := fs.String("log-level", "", "Log level (trace|debug|info|warn|error)")
	timeout := fs.Duration("timeout", cfg.Timeout, "Per-request timeout")
	pollTimeout := fs.Duration("poll-timeout", cfg.PollTimeout, "Long-poll timeout")
	debug := fs.Bool("debug", cfg.Debug, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", cli.ErrUsage, err)
	}

	if *logLevel != "" {
		level, err := logger.ParseLevel(*logLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", cli.ErrUsage, err)
		}
		cfg.LogLevel = level
	}
	cfg.Timeout = *timeout
	cfg.PollTimeout = *pollTimeout
	if *debug && !cfg.Debug {
		cfg.Debug = true
		cfg.LogLevel = min(cfg.LogLevel, logger.LevelDebug)
	}

	return fs.Args(), nil
}
