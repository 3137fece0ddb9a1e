package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"finch-command-runner/internal/config"
	"finch-command-runner/internal/device"
	"finch-command-runner/internal/executor"
	"finch-command-runner/internal/parser"
)

func newApp(t *testing.T, commands string, dev device.Device) (*App, *bytes.Buffer) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "FinchCommands01.txt")
	if commands != "" {
		if err := os.WriteFile(p, []byte(commands), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.Runtime{CommandsFile: p, Device: config.DeviceSim, Executor: executor.DefaultConfig()}
	var out bytes.Buffer
	return New(cfg, dev, &out, slog.New(slog.NewTextHandler(io.Discard, nil))), &out
}

func TestRunHaltsAndDisconnects(t *testing.T) {
	sim := device.NewSimulator(slog.New(slog.NewTextHandler(io.Discard, nil)))
	app, out := newApp(t, "MOVEFORWARD\nDELAY\nSTOPMOTORS\nDONE\nMOVEBACKWARD\n", sim)
	res, err := app.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Parsed != 5 || res.Outcome.State != executor.Halted || res.Outcome.Executed != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	st := sim.State()
	if st.Connected || st.Elapsed != 2*time.Second || st.Calls != 3 {
		t.Fatalf("unexpected simulator state: %+v", st)
	}
	text := out.String()
	if !strings.Contains(text, "halted by DONE") || !strings.Contains(text, "Thank you") {
		t.Fatalf("unexpected output:\n%s", text)
	}
	if res.RunID == "" {
		t.Fatal("expected run id")
	}
}

func TestRunReportsTemperature(t *testing.T) {
	sim := device.NewSimulator(nil)
	sim.Temperature = 19.75
	app, out := newApp(t, "TEMPERATURE\n", sim)
	res, err := app.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome.State != executor.Completed || !strings.Contains(out.String(), "Temperature: 19.75") {
		t.Fatalf("state=%s output:\n%s", res.Outcome.State, out.String())
	}
}

func TestRunInvalidFileNeverTouchesDevice(t *testing.T) {
	dev := &countingDevice{}
	app, out := newApp(t, "LEDON\nSPIN\n", dev)
	_, err := app.Run(context.Background())
	if parser.KindOf(err) != parser.UnrecognizedCommand {
		t.Fatalf("expected unrecognized command, got %v", err)
	}
	if dev.calls != 0 {
		t.Fatalf("device called %d times", dev.calls)
	}
	if !strings.Contains(out.String(), `"SPIN"`) {
		t.Fatalf("expected offending line in output:\n%s", out.String())
	}
}

func TestRunMissingFile(t *testing.T) {
	dev := &countingDevice{}
	app, out := newApp(t, "", dev)
	_, err := app.Run(context.Background())
	if !parser.IsSourceUnavailable(err) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
	if dev.calls != 0 || !strings.Contains(out.String(), "Unable to locate") {
		t.Fatalf("calls=%d output:\n%s", dev.calls, out.String())
	}
}

func TestRunFaultStillDisconnects(t *testing.T) {
	dev := &countingDevice{failMotors: errors.New("stalled")}
	app, _ := newApp(t, "LEDON\nMOVEFORWARD\nLEDOFF\n", dev)
	res, err := app.Run(context.Background())
	var ee *executor.ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected execution error, got %v", err)
	}
	if res.Outcome.State != executor.Faulted || !dev.disconnected {
		t.Fatalf("state=%s disconnected=%v", res.Outcome.State, dev.disconnected)
	}
}

func TestRunConnectFeedback(t *testing.T) {
	sim := device.NewSimulator(nil)
	app, _ := newApp(t, "DONE\n", sim)
	app.cfg.ConnectFeedback = true
	if _, err := app.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	// 26 ramp steps each way, 200ms per step.
	if got := sim.State().Elapsed; got != 52*200*time.Millisecond {
		t.Fatalf("elapsed=%s", got)
	}
}

func TestRunConnectFailurePrintsSummary(t *testing.T) {
	dev := &countingDevice{failConnect: &device.ConnError{Op: "connect", Err: errors.New("no robot on usb")}}
	app, out := newApp(t, "LEDON\nDONE\n", dev)
	_, err := app.Run(context.Background())
	var ce *device.ConnError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConnError, got %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "❌ not started") || !strings.Contains(text, "no robot on usb") {
		t.Fatalf("expected summary with cause:\n%s", text)
	}
	if dev.calls != 1 {
		t.Fatalf("device called %d times, want only connect", dev.calls)
	}
}

func TestRunPrintsProgress(t *testing.T) {
	app, out := newApp(t, "LEDON\nLEDOFF\n", device.NewSimulator(nil))
	if _, err := app.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{
		"Command Currently Executing: LEDON",
		"Command Currently Executing: LEDOFF",
		"The command sequence is now complete.",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in output:\n%s", want, text)
		}
	}
}

func TestRunHaltSkipsCompletionLine(t *testing.T) {
	app, out := newApp(t, "LEDON\nDONE\n", device.NewSimulator(nil))
	if _, err := app.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	if !strings.Contains(text, "Command Currently Executing: DONE") || strings.Contains(text, "now complete") {
		t.Fatalf("unexpected output:\n%s", text)
	}
}

type countingDevice struct {
	calls        int
	failConnect  error
	failMotors   error
	disconnected bool
}

func (d *countingDevice) Connect(context.Context) error {
	d.calls++
	return d.failConnect
}

func (d *countingDevice) Disconnect(context.Context) error {
	d.calls++
	d.disconnected = true
	return nil
}

func (d *countingDevice) SetMotors(context.Context, int, int) error {
	d.calls++
	return d.failMotors
}

func (d *countingDevice) SetLED(context.Context, int, int, int) error { d.calls++; return nil }
func (d *countingDevice) Wait(context.Context, int) error            { d.calls++; return nil }

func (d *countingDevice) ReadTemperature(context.Context) (float64, error) {
	d.calls++
	return 0, nil
}

func (d *countingDevice) ReadAverageLight(context.Context) (float64, error) {
	d.calls++
	return 0, nil
}
