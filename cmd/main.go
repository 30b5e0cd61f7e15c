package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	optrx "github.com/ethereum-optimism/infra/op-trx"
	"github.com/ethereum-optimism/infra/op-trx/exitcodes"
	"github.com/ethereum-optimism/infra/op-trx/flags"
	"github.com/ethereum-optimism/infra/op-trx/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-trx"
	app.Usage = "TRX test report converter"
	app.Description = "op-trx converts section-traversal event streams from test engines into VSTest v2 .trx documents"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			// Check for typed runtime errors
			if optrx.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else if optrx.IsTestFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			} else {
				// For other unspecified errors, default to exit code 1
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			}
		}
	}

	// Start telemetry
	shutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	if err := app.Run(os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context) error {
	logger := setupLogger(ctx)

	cfg, err := optrx.NewConfig(ctx, logger)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return optrx.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debug("Config",
		"input", cfg.InputPath,
		"output", cfg.OutputPath,
		"follow", cfg.Follow)

	conv, err := optrx.New(ctx.Context, cfg, Version)
	if err != nil {
		return optrx.NewRuntimeError(fmt.Errorf("failed to create converter: %w", err))
	}
	defer conv.Stop(ctx.Context) //nolint:errcheck

	// Follow mode runs long enough to be worth health checks and metrics.
	if cfg.Follow {
		svc := service.New()
		svc.Start(ctx.Context)
		defer svc.Shutdown()
	}

	return conv.Start(ctx.Context)
}

func setupLogger(ctx *cli.Context) log.Logger {
	level := levelFromString(ctx.String(flags.LogLevel.Name))
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, level, false)
	logger := log.NewLogger(handler)
	log.SetDefault(logger)
	return logger
}

func levelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return log.LevelTrace
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	case "crit":
		return log.LevelCrit
	default:
		return log.LevelInfo
	}
}
