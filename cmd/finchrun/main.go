package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"finch-command-runner/internal/config"
	"finch-command-runner/internal/device"
	"finch-command-runner/internal/orchestrator"
	"finch-command-runner/internal/parser"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one pass and returns the process exit code.
func run(args []string) int {
	cfg, err := config.LoadRuntime()
	logger := newLogger(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		logger.Error("invalid config", "error", err)
		return 2
	}
	if len(args) > 0 {
		cfg.CommandsFile = args[0]
	}

	var dev device.Device
	switch cfg.Device {
	case config.DeviceHTTP:
		dev = device.NewClient(cfg.DeviceURL, cfg.DeviceToken, logger)
	default:
		sim := device.NewSimulator(logger)
		sim.RealTime = cfg.SimRealTime
		dev = sim
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	res, err := orchestrator.New(cfg, dev, os.Stdout, logger).Run(ctx)
	switch {
	case err == nil:
	case parser.IsSourceUnavailable(err):
		logger.Warn("nothing to run", "path", cfg.CommandsFile)
	default:
		logger.Error("run failed", "run_id", res.RunID, "error", err)
		return 1
	}
	return 0
}

func newLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
