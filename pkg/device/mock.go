package device

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/config"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/transit"
)

// Mock simulates the star device for development and tests. It runs the same
// transit model the firmware runs, scaled by the configured star brightness,
// with a small deterministic noise term on top. The configuration is copied
// at construction: later edits to the caller's struct never reach the
// generator goroutine.
type Mock struct {
	cfg config.MockConfig

	mu        sync.RWMutex
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	samples   chan TelemetrySample
	lines     chan string

	// Simulated device state
	startTime time.Time
	star      StarConfig
	planets   []transit.Planet
	saved     *mockSnapshot // nil until SAVE
}

type mockSnapshot struct {
	star    StarConfig
	planets []transit.Planet
}

// defaultMockStar mirrors the firmware's factory configuration.
func defaultMockStar() StarConfig {
	return StarConfig{R: 255, G: 200, B: 100, Brightness: 80}
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.MockConfig) *Mock {
	mc := config.MockConfig{
		NoiseLevel: 1.5,
		SampleRate: 50 * time.Millisecond,
	}
	if cfg != nil {
		mc = *cfg
	}
	if mc.SampleRate <= 0 {
		mc.SampleRate = 50 * time.Millisecond
	}

	return &Mock{
		cfg:  mc,
		star: defaultMockStar(),
	}
}

// Connect simulates connecting to the device and starts the sample generator.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.startTime = time.Now()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.done = make(chan struct{})
	m.samples = make(chan TelemetrySample, DefaultBufferSize)
	m.lines = make(chan string, 32)

	go m.generateSamples(m.ctx, m.samples, m.lines, m.done)

	return nil
}

// Close stops the mocked device and waits for the generator to exit. The
// lock is released before waiting: the generator takes a read lock per
// sample.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.connected = false
	done := m.done
	m.mu.Unlock()

	<-done
	return nil
}

// Samples returns the channel for reading samples.
func (m *Mock) Samples() <-chan TelemetrySample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.samples
}

// Lines returns simulated device text output.
func (m *Mock) Lines() <-chan string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lines
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// SendStar stores the star configuration (simulated immediate ack).
func (m *Mock) SendStar(_ context.Context, cfg StarConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.star = cfg
	return nil
}

// SendPlanets stores the planet list (simulated immediate ack).
func (m *Mock) SendPlanets(_ context.Context, planets []transit.Planet) error {
	if len(planets) > MaxPlanets {
		return fmt.Errorf("%d planets exceed the device limit of %d", len(planets), MaxPlanets)
	}
	for _, p := range planets {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.planets = append([]transit.Planet(nil), planets...)
	return nil
}

// Command simulates the firmware's persistence commands in memory.
func (m *Mock) Command(_ context.Context, cmd string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}

	switch cmd {
	case CmdSave:
		m.saved = &mockSnapshot{
			star:    m.star,
			planets: append([]transit.Planet(nil), m.planets...),
		}
	case CmdLoad:
		if m.saved == nil {
			return fmt.Errorf("%w: nothing saved", ErrNack)
		}
		m.star = m.saved.star
		m.planets = append([]transit.Planet(nil), m.saved.planets...)
	case CmdReset:
		m.star = defaultMockStar()
		m.planets = nil
	case CmdList:
		m.emitLine(fmt.Sprintf("STAR %d,%d,%d,%d", m.star.R, m.star.G, m.star.B, m.star.Brightness))
		for i, p := range m.planets {
			m.emitLine(fmt.Sprintf("PLANET %d: %s", i+1, encodePlanet(p)))
		}
	case CmdHelp:
		m.emitLine("commands: SETSTAR SETNUM SAVE LOAD RESETCFG LIST HELP")
	default:
		return fmt.Errorf("%w: unknown command %s", ErrNack, cmd)
	}

	return nil
}

// emitLine pushes text output without blocking. Callers hold m.mu.
func (m *Mock) emitLine(line string) {
	select {
	case m.lines <- line:
	default:
	}
}

// generateSamples produces simulated telemetry on a ticker until canceled.
func (m *Mock) generateSamples(ctx context.Context, samples chan<- TelemetrySample, lines chan<- string, done chan struct{}) {
	defer func() {
		close(samples)
		close(lines)
		close(done)
	}()

	ticker := time.NewTicker(m.cfg.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sample := m.generateSample(now)
			select {
			case samples <- sample:
			case <-ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// generateSample computes one telemetry point at the given wall time.
func (m *Mock) generateSample(now time.Time) TelemetrySample {
	m.mu.RLock()
	elapsed := now.Sub(m.startTime)
	star := m.star
	planets := m.planets
	m.mu.RUnlock()

	scale := 255.0 * float64(star.Brightness) / 100.0
	brightness := scale * transit.ExpectedBrightness(planets, elapsed)

	// Deterministic pseudo-noise, same flavor the hardware shows.
	noise := (math.Sin(float64(elapsed.Nanoseconds())*0.001) +
		math.Cos(float64(elapsed.Nanoseconds())*0.0013)) *
		m.cfg.NoiseLevel * 0.5
	brightness += noise

	if brightness < 0 {
		brightness = 0
	}

	return TelemetrySample{Timestamp: now, Brightness: brightness}
}
