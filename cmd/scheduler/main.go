package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kilgorjn/patient-scheduling/adapter/cli"
	"github.com/kilgorjn/patient-scheduling/adapter/cli/runs"
	"github.com/kilgorjn/patient-scheduling/adapter/cli/solve"
	"github.com/kilgorjn/patient-scheduling/internal/app"
	"github.com/kilgorjn/patient-scheduling/pkg/config"
	"github.com/kilgorjn/patient-scheduling/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("failed to load config, using development mode", "error", err)
		cfg = &config.Config{AppEnv: "development"}
	}

	if cfg.IsDevelopment() {
		devCfg := observability.DefaultLogConfig()
		devCfg.Level = observability.LogLevelDebug
		logger = observability.NewLogger(devCfg)
	}
	cli.SetLogger(logger)

	var cliApp *cli.App
	var container *app.Container

	if cfg.IsLocalMode() {
		logger.Info("starting in local mode with SQLite", "database", cfg.SQLitePath)
		container, err = app.NewLocalContainer(ctx, cfg, logger)
	} else {
		container, err = app.NewContainer(ctx, cfg, logger)
	}

	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("failed to initialize container, running in limited mode", "error", err)
			cliApp = nil
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		defer container.Close()

		if cfg.OutboxProcessorEnabled && container.OutboxProcessor != nil {
			go container.OutboxProcessor.Start(ctx)
		} else if container.OutboxProcessor == nil {
			logger.Debug("outbox processor not available in local mode")
		}

		cliApp = cli.NewApp(container)
	}

	cli.SetApp(cliApp)

	cli.AddCommand(solve.Cmd)
	cli.AddCommand(runs.Cmd)

	cli.Execute()
}
