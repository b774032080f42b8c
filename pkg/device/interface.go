package device

import (
	"context"

	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/transit"
)

// Device defines the link to a star device (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Samples() <-chan TelemetrySample
	Lines() <-chan string
	SendStar(ctx context.Context, cfg StarConfig) error
	SendPlanets(ctx context.Context, planets []transit.Planet) error
	Command(ctx context.Context, cmd string) error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
