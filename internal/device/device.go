// Package device defines the robot control surface the executor drives and
// the concrete devices the runner can connect to.
package device

import (
	"context"
	"errors"
	"fmt"
)

// Device is a connected robot. Calls are synchronous; one caller at a time.
type Device interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	SetMotors(ctx context.Context, left, right int) error
	SetLED(ctx context.Context, r, g, b int) error
	Wait(ctx context.Context, ms int) error
	ReadTemperature(ctx context.Context) (float64, error)
	ReadAverageLight(ctx context.Context) (float64, error)
}

// ErrNotConnected is returned by control calls made outside a connection.
var ErrNotConnected = errors.New("device not connected")

// ConnError reports a failed connect or disconnect.
type ConnError struct {
	Op  string
	Err error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// DeviceError reports a failed control or sensor call.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
