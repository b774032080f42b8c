package device

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/config"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/transit"
)

func newTestMock(t *testing.T) *Mock {
	t.Helper()
	m := NewMock(&config.MockConfig{
		NoiseLevel: 0,
		SampleRate: 5 * time.Millisecond,
	})
	require.NoError(t, m.Connect())
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMock_ConnectClose(t *testing.T) {
	m := NewMock(nil)

	assert.False(t, m.IsConnected())
	require.NoError(t, m.Connect())
	assert.True(t, m.IsConnected())

	// Double connect is an error.
	assert.Error(t, m.Connect())

	require.NoError(t, m.Close())
	assert.False(t, m.IsConnected())

	// Close is idempotent.
	assert.NoError(t, m.Close())
}

func TestMock_Reconnect(t *testing.T) {
	m := NewMock(&config.MockConfig{NoiseLevel: 0, SampleRate: 5 * time.Millisecond})

	require.NoError(t, m.Connect())
	require.NoError(t, m.Close())

	// A fresh connect yields fresh channels.
	require.NoError(t, m.Connect())
	defer m.Close()

	select {
	case _, ok := <-m.Samples():
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("no sample after reconnect")
	}
}

func TestMock_RequiresConnection(t *testing.T) {
	m := NewMock(nil)
	ctx := context.Background()

	assert.ErrorIs(t, m.SendStar(ctx, defaultMockStar()), ErrNotConnected)
	assert.ErrorIs(t, m.SendPlanets(ctx, nil), ErrNotConnected)
	assert.ErrorIs(t, m.Command(ctx, CmdSave), ErrNotConnected)
}

func TestMock_SendStarValidates(t *testing.T) {
	m := newTestMock(t)
	ctx := context.Background()

	assert.Error(t, m.SendStar(ctx, StarConfig{Brightness: 150}))
	assert.NoError(t, m.SendStar(ctx, StarConfig{R: 10, G: 20, B: 30, Brightness: 50}))
}

func TestMock_SendPlanetsValidates(t *testing.T) {
	m := newTestMock(t)
	ctx := context.Background()

	good := transit.Planet{
		Name:            "kepler",
		Dip:             0.1,
		OrbitPeriod:     10 * time.Second,
		TransitDuration: 2 * time.Second,
	}

	assert.NoError(t, m.SendPlanets(ctx, []transit.Planet{good}))

	// Too many slots.
	six := make([]transit.Planet, MaxPlanets+1)
	for i := range six {
		six[i] = good
		six[i].Name = string(rune('a' + i))
	}
	assert.Error(t, m.SendPlanets(ctx, six))

	// Invalid planet.
	bad := good
	bad.Dip = 2.0
	assert.Error(t, m.SendPlanets(ctx, []transit.Planet{bad}))
}

func TestMock_LoadBeforeSaveNacks(t *testing.T) {
	m := newTestMock(t)
	assert.ErrorIs(t, m.Command(context.Background(), CmdLoad), ErrNack)
}

func TestMock_UnknownCommandNacks(t *testing.T) {
	m := newTestMock(t)
	assert.ErrorIs(t, m.Command(context.Background(), "FLY"), ErrNack)
}

func TestMock_SaveLoadRoundTrip(t *testing.T) {
	m := newTestMock(t)
	ctx := context.Background()

	star := StarConfig{R: 1, G: 2, B: 3, Brightness: 40}
	require.NoError(t, m.SendStar(ctx, star))
	require.NoError(t, m.Command(ctx, CmdSave))

	// Change the live config, then restore the saved one.
	require.NoError(t, m.SendStar(ctx, StarConfig{R: 9, G: 9, B: 9, Brightness: 90}))
	require.NoError(t, m.Command(ctx, CmdLoad))

	require.NoError(t, m.Command(ctx, CmdList))
	line := waitLinePrefix(t, m.Lines(), "STAR ")
	assert.Equal(t, "STAR 1,2,3,40", line)
}

func TestMock_ResetRestoresDefaults(t *testing.T) {
	m := newTestMock(t)
	ctx := context.Background()

	require.NoError(t, m.SendStar(ctx, StarConfig{R: 9, G: 9, B: 9, Brightness: 10}))
	require.NoError(t, m.Command(ctx, CmdReset))

	require.NoError(t, m.Command(ctx, CmdList))
	line := waitLinePrefix(t, m.Lines(), "STAR ")
	assert.Equal(t, "STAR 255,200,100,80", line)
}

func TestMock_ListIncludesPlanets(t *testing.T) {
	m := newTestMock(t)
	ctx := context.Background()

	planets := []transit.Planet{
		{Name: "a", Dip: 0.1, OrbitPeriod: 10 * time.Second, TransitDuration: 2 * time.Second},
		{Name: "b", Dip: 0.2, OrbitPeriod: 5 * time.Second, TransitDuration: time.Second, PhaseOffset: 500 * time.Millisecond},
	}
	require.NoError(t, m.SendPlanets(ctx, planets))
	require.NoError(t, m.Command(ctx, CmdList))

	assert.Equal(t, "PLANET 1: a,0.100000,10000,2000,0", waitLinePrefix(t, m.Lines(), "PLANET 1"))
	assert.Equal(t, "PLANET 2: b,0.200000,5000,1000,500", waitLinePrefix(t, m.Lines(), "PLANET 2"))
}

func TestMock_Help(t *testing.T) {
	m := newTestMock(t)
	require.NoError(t, m.Command(context.Background(), CmdHelp))
	line := waitLinePrefix(t, m.Lines(), "commands:")
	assert.Contains(t, line, "SETSTAR")
}

func TestMock_SamplesMatchModel(t *testing.T) {
	m := newTestMock(t)

	// No planets, noise zero: every sample sits at the scaled brightness,
	// 255 * 80% = 204.
	for i := 0; i < 5; i++ {
		select {
		case s := <-m.Samples():
			assert.InDelta(t, 204.0, s.Brightness, 1e-6)
			assert.False(t, s.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("no sample from generator")
		}
	}
}

func TestMock_ConfigCopiedAtConstruction(t *testing.T) {
	cfg := &config.MockConfig{NoiseLevel: 0, SampleRate: 5 * time.Millisecond}
	m := NewMock(cfg)
	require.NoError(t, m.Connect())
	t.Cleanup(func() { _ = m.Close() })

	// Edits to the caller's struct after construction never reach the
	// generator: samples stay noise-free.
	cfg.NoiseLevel = 500
	for i := 0; i < 5; i++ {
		select {
		case s := <-m.Samples():
			assert.InDelta(t, 204.0, s.Brightness, 1e-6)
		case <-time.After(time.Second):
			t.Fatal("no sample from generator")
		}
	}
}

func TestMock_ConcurrentConfigEdits(t *testing.T) {
	cfg := &config.MockConfig{NoiseLevel: 0, SampleRate: time.Millisecond}
	m := NewMock(cfg)
	require.NoError(t, m.Connect())

	// The settings form mutates the same struct while the generator runs.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				cfg.NoiseLevel = float64(i)
				cfg.SampleRate = time.Duration(i+1) * time.Millisecond
			}
		}
	}()

	for i := 0; i < 20; i++ {
		select {
		case s := <-m.Samples():
			assert.InDelta(t, 204.0, s.Brightness, 1e-6)
		case <-time.After(time.Second):
			t.Fatal("no sample from generator")
		}
	}

	close(stop)
	wg.Wait()
	require.NoError(t, m.Close())
}

func TestMock_SampleTimestampsAdvance(t *testing.T) {
	m := newTestMock(t)

	var prev time.Time
	for i := 0; i < 5; i++ {
		select {
		case s := <-m.Samples():
			if i > 0 {
				assert.True(t, s.Timestamp.After(prev))
			}
			prev = s.Timestamp
		case <-time.After(time.Second):
			t.Fatal("no sample from generator")
		}
	}
}

// waitLinePrefix reads device text output until a line with the prefix shows
// up or the wait times out.
func waitLinePrefix(t *testing.T, lines <-chan string, prefix string) string {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "lines channel closed while waiting for %q", prefix)
			if strings.HasPrefix(line, prefix) {
				return line
			}
		case <-deadline:
			t.Fatalf("no line with prefix %q", prefix)
			return ""
		}
	}
}
