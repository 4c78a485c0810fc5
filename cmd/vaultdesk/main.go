package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharsanguruparan/vaultdesk/internal/cli"
	"github.com/dharsanguruparan/vaultdesk/internal/config"
	"github.com/dharsanguruparan/vaultdesk/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vaultdesk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	app, err := cli.NewApp(ctx, cfg, log, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer app.Close()

	return cli.NewRootCommand(app).ExecuteContext(ctx)
}
