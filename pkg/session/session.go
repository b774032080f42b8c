package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/device"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/logger"
)

// Session owns one star/planet Config and the live device link. The copy the
// device holds is fixed at Push time: editing the session config afterwards
// does not affect the device until the next Push. A session ends with Close,
// which also tears down the link.
type Session struct {
	id  string
	dev device.Device
	log *logger.Logger

	mu       sync.RWMutex
	cfg      Config
	pushed   bool
	pushedAt time.Time
}

// New creates a session around an already constructed device link.
func New(dev device.Device, cfg Config) *Session {
	return &Session{
		id:  uuid.NewString(),
		dev: dev,
		log: logger.Get(logger.InfoLevel),
		cfg: cfg.clone(),
	}
}

// ID returns the session identity.
func (s *Session) ID() string {
	return s.id
}

// Device returns the underlying link.
func (s *Session) Device() device.Device {
	return s.dev
}

// Config returns a copy of the session configuration.
func (s *Session) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.clone()
}

// SetConfig replaces the session configuration after validating it.
func (s *Session) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg.clone()
	s.pushed = false
	return nil
}

// Pushed reports whether the current configuration has been transmitted.
func (s *Session) Pushed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pushed
}

// Push validates the configuration and transmits the star settings and the
// planet list. Validation failures never reach the wire.
func (s *Session) Push(ctx context.Context) error {
	s.mu.RLock()
	cfg := s.cfg.clone()
	s.mu.RUnlock()

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := s.dev.SendStar(ctx, cfg.Star); err != nil {
		return fmt.Errorf("push star config: %w", err)
	}
	if err := s.dev.SendPlanets(ctx, cfg.Planets); err != nil {
		return fmt.Errorf("push planets: %w", err)
	}

	s.mu.Lock()
	s.pushed = true
	s.pushedAt = time.Now()
	s.mu.Unlock()

	s.log.Infof("session %s: pushed star config and %d planet(s)", s.id, len(cfg.Planets))
	return nil
}

// SaveToDevice asks the firmware to persist its current configuration.
func (s *Session) SaveToDevice(ctx context.Context) error {
	return s.dev.Command(ctx, device.CmdSave)
}

// LoadFromDevice asks the firmware to restore its persisted configuration.
func (s *Session) LoadFromDevice(ctx context.Context) error {
	return s.dev.Command(ctx, device.CmdLoad)
}

// ResetDevice restores the firmware's factory configuration.
func (s *Session) ResetDevice(ctx context.Context) error {
	return s.dev.Command(ctx, device.CmdReset)
}

// List asks the firmware to print its configuration on the Lines channel.
func (s *Session) List(ctx context.Context) error {
	return s.dev.Command(ctx, device.CmdList)
}

// Close destroys the session and closes the device link.
func (s *Session) Close() error {
	return s.dev.Close()
}
