package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finch-command-runner/internal/device"
	"finch-command-runner/internal/model"
)

// Config holds the fixed parameters instructions are executed with.
type Config struct {
	MotorSpeed    int
	LEDBrightness int
	DelayDuration time.Duration
	// CallTimeout bounds each device call when positive.
	CallTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{MotorSpeed: 100, LEDBrightness: 200, DelayDuration: 2000 * time.Millisecond}
}

// State is the executor's position in its run.
type State string

const (
	Running   State = "running"
	Halted    State = "halted"
	Completed State = "completed"
	Faulted   State = "faulted"
)

// Reading is a sensor value produced by a sensor instruction.
type Reading struct {
	Instruction model.Instruction
	Sensor      string
	Value       float64
}

// Outcome summarises one pass over a sequence.
type Outcome struct {
	State    State
	Executed int
	Readings []Reading
}

type Executor struct {
	cfg      Config
	dev      device.Device
	report   func(Reading)
	progress func(index int, in model.Instruction)
	logger   *slog.Logger
}

// New builds an executor for a connected device. report may be nil.
func New(cfg Config, dev device.Device, report func(Reading), logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{cfg: cfg, dev: dev, report: report, logger: logger}
}

// WithProgress registers fn to be called before each instruction, Halt included, is dispatched.
func (e *Executor) WithProgress(fn func(index int, in model.Instruction)) *Executor {
	e.progress = fn
	return e
}

// Run dispatches seq in order. It stops at the first Halt or the first device
// failure; a failure is returned as *ExecutionError together with a Faulted outcome.
func (e *Executor) Run(ctx context.Context, seq model.Sequence) (Outcome, error) {
	out := Outcome{State: Running}
	for i, in := range seq {
		if !in.Valid() {
			out.State = Faulted
			return out, &ExecutionError{Kind: InvalidInstruction, Index: i, Instruction: in, Err: ErrUnknownInstruction}
		}
		e.logger.Info("executing command", "index", i, "command", in.String())
		if e.progress != nil {
			e.progress(i, in)
		}
		if in == model.Halt {
			out.State = Halted
			e.logger.Debug("halt reached", "index", i, "remaining", len(seq)-i-1)
			return out, nil
		}
		if err := e.step(ctx, in, &out); err != nil {
			out.State = Faulted
			return out, &ExecutionError{Kind: DeviceFault, Index: i, Instruction: in, Err: err}
		}
		out.Executed++
	}
	out.State = Completed
	return out, nil
}

func (e *Executor) step(ctx context.Context, in model.Instruction, out *Outcome) error {
	if e.cfg.CallTimeout > 0 {
		cctx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
		defer cancel()
		ctx = cctx
	}
	speed, level := e.cfg.MotorSpeed, e.cfg.LEDBrightness
	switch in {
	case model.MoveForward:
		return e.dev.SetMotors(ctx, speed, speed)
	case model.MoveBackward:
		return e.dev.SetMotors(ctx, -speed, -speed)
	case model.StopMotors:
		return e.dev.SetMotors(ctx, 0, 0)
	case model.TurnRight:
		return e.dev.SetMotors(ctx, speed, -speed)
	case model.TurnLeft:
		return e.dev.SetMotors(ctx, -speed, speed)
	case model.LedOn:
		return e.dev.SetLED(ctx, level, level, level)
	case model.LedOff:
		return e.dev.SetLED(ctx, 0, 0, 0)
	case model.Delay:
		return e.dev.Wait(ctx, int(e.cfg.DelayDuration/time.Millisecond))
	case model.ReadTemperature:
		v, err := e.dev.ReadTemperature(ctx)
		if err != nil {
			return err
		}
		e.emit(out, Reading{Instruction: in, Sensor: "Temperature", Value: v})
		return nil
	case model.ReadAverageLight:
		v, err := e.dev.ReadAverageLight(ctx)
		if err != nil {
			return err
		}
		e.emit(out, Reading{Instruction: in, Sensor: "Average light", Value: v})
		return nil
	default:
		return fmt.Errorf("no device mapping for %s", in)
	}
}

func (e *Executor) emit(out *Outcome, r Reading) {
	out.Readings = append(out.Readings, r)
	if e.report != nil {
		e.report(r)
	}
}
