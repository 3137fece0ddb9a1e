package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"finch-command-runner/internal/config"
	"finch-command-runner/internal/device"
	"finch-command-runner/internal/executor"
	"finch-command-runner/internal/model"
	"finch-command-runner/internal/parser"
	"finch-command-runner/internal/report"
)

const disconnectTimeout = 10 * time.Second

// Result describes one finished run.
type Result struct {
	RunID   string
	Parsed  int
	Outcome executor.Outcome
}

type App struct {
	cfg    config.Runtime
	dev    device.Device
	out    io.Writer
	logger *slog.Logger
}

func New(cfg config.Runtime, dev device.Device, out io.Writer, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, dev: dev, out: out, logger: logger}
}

// Run performs one pass: parse, connect, execute, disconnect. The device is
// never touched when the command file fails to parse.
func (a *App) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	logger := a.logger.With("run_id", res.RunID)
	a.print(report.Welcome())
	defer a.print(report.Closing())

	seq, err := parser.ParseFile(a.cfg.CommandsFile, parser.Options{
		OnAccept: func(line int, in model.Instruction) {
			logger.Info("command accepted", "line", line, "command", in.String())
		},
	})
	if err != nil {
		a.print(report.ParseFailure(err))
		if parser.IsSourceUnavailable(err) {
			logger.Warn("command file missing", "path", a.cfg.CommandsFile)
		} else {
			logger.Error("command file rejected", "path", a.cfg.CommandsFile, "error", err)
		}
		return res, err
	}
	res.Parsed = len(seq)
	a.print(report.Accepted(seq))

	if err := a.dev.Connect(ctx); err != nil {
		logger.Error("connect failed", "error", err)
		a.print(report.Final(res.RunID, res.Parsed, res.Outcome, err))
		return res, err
	}
	logger.Info("device connected")
	if a.cfg.ConnectFeedback {
		if err := fade(ctx, a.dev, 0, 250, 10); err != nil {
			logger.Warn("connect feedback failed", "error", err)
		}
	}

	ex := executor.New(a.cfg.Executor, a.dev, func(r executor.Reading) {
		a.print(report.Reading(r))
	}, logger).WithProgress(func(_ int, in model.Instruction) {
		a.print(report.Executing(in))
	})
	res.Outcome, err = ex.Run(ctx, seq)
	if err != nil {
		logger.Error("execution stopped", "state", res.Outcome.State, "error", err)
	} else {
		if res.Outcome.State == executor.Completed {
			a.print(report.SequenceComplete())
		}
		logger.Info("execution finished", "state", res.Outcome.State, "executed", res.Outcome.Executed)
	}

	if derr := a.shutdown(ctx, res.Outcome.State != executor.Faulted); derr != nil {
		logger.Error("disconnect failed", "error", derr)
		err = errors.Join(err, derr)
	} else {
		logger.Info("device disconnected")
	}
	a.print(report.Final(res.RunID, res.Parsed, res.Outcome, err))
	return res, err
}

// shutdown disconnects even when ctx has been cancelled.
func (a *App) shutdown(ctx context.Context, feedback bool) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
	defer cancel()
	if feedback && a.cfg.ConnectFeedback {
		if err := fade(cctx, a.dev, 250, 0, -10); err != nil {
			a.logger.Warn("disconnect feedback failed", "error", err)
		}
	}
	return a.dev.Disconnect(cctx)
}

// fade ramps the green LED channel from..to and switches the LED off.
func fade(ctx context.Context, dev device.Device, from, to, step int) error {
	for level := from; (step > 0 && level <= to) || (step < 0 && level >= to); level += step {
		if err := dev.SetLED(ctx, 0, level, 0); err != nil {
			return err
		}
		if err := dev.Wait(ctx, 200); err != nil {
			return err
		}
	}
	return dev.SetLED(ctx, 0, 0, 0)
}

func (a *App) print(msg string) {
	if a.out == nil {
		return
	}
	fmt.Fprintln(a.out, msg)
	fmt.Fprintln(a.out)
}
