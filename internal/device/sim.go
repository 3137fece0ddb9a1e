package device

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SimState is a snapshot of the simulator.
type SimState struct {
	Connected   bool
	Left, Right int
	LED         [3]int
	Elapsed     time.Duration
	Calls       int
}

// Simulator is an in-process robot. It keeps motor and LED state, accumulates
// simulated time and returns fixed sensor values.
type Simulator struct {
	Temperature float64
	Light       float64
	// RealTime makes Wait actually sleep.
	RealTime bool

	logger *slog.Logger

	mu    sync.Mutex
	state SimState
}

func NewSimulator(logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{Temperature: 21.5, Light: 40, logger: logger}
}

func (s *Simulator) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Connected = true
	s.logger.Debug("simulator connected")
	return nil
}

func (s *Simulator) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Connected = false
	s.state.Left, s.state.Right = 0, 0
	s.state.LED = [3]int{}
	s.logger.Debug("simulator disconnected")
	return nil
}

func (s *Simulator) SetMotors(ctx context.Context, left, right int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked("set motors"); err != nil {
		return err
	}
	s.state.Left, s.state.Right = left, right
	s.logger.Debug("set motors", "left", left, "right", right)
	return nil
}

func (s *Simulator) SetLED(ctx context.Context, r, g, b int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked("set led"); err != nil {
		return err
	}
	s.state.LED = [3]int{r, g, b}
	s.logger.Debug("set led", "r", r, "g", g, "b", b)
	return nil
}

func (s *Simulator) Wait(ctx context.Context, ms int) error {
	s.mu.Lock()
	if err := s.checkLocked("wait"); err != nil {
		s.mu.Unlock()
		return err
	}
	d := time.Duration(ms) * time.Millisecond
	s.state.Elapsed += d
	realTime := s.RealTime
	s.mu.Unlock()
	s.logger.Debug("wait", "ms", ms)
	if !realTime || d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return &DeviceError{Op: "wait", Err: ctx.Err()}
	case <-timer.C:
		return nil
	}
}

func (s *Simulator) ReadTemperature(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked("read temperature"); err != nil {
		return 0, err
	}
	return s.Temperature, nil
}

func (s *Simulator) ReadAverageLight(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked("read light"); err != nil {
		return 0, err
	}
	return s.Light, nil
}

// State returns a copy of the current simulator state.
func (s *Simulator) State() SimState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Simulator) checkLocked(op string) error {
	if !s.state.Connected {
		return &DeviceError{Op: op, Err: ErrNotConnected}
	}
	s.state.Calls++
	return nil
}
