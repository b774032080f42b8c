package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/config"
)

// TestMockGracefulShutdown verifies that closing the device while a consumer
// is draining the telemetry channel does not deadlock and ends with the
// channel closed.
func TestMockGracefulShutdown(t *testing.T) {
	m := NewMock(&config.MockConfig{
		NoiseLevel: 0,
		SampleRate: 5 * time.Millisecond,
	})
	require.NoError(t, m.Connect())

	samples := m.Samples()
	consumed := make(chan int, 1)

	go func() {
		count := 0
		for range samples {
			count++
			if count == 3 {
				// Close mid-stream, while the generator is still producing.
				_ = m.Close()
			}
		}
		consumed <- count
	}()

	select {
	case count := <-consumed:
		assert.GreaterOrEqual(t, count, 3)
	case <-time.After(5 * time.Second):
		t.Fatal("telemetry channel never closed after Close")
	}

	// The channel is closed for good.
	_, ok := <-samples
	assert.False(t, ok)

	// Lines channel closed too.
	_, ok = <-m.Lines()
	assert.False(t, ok)

	assert.False(t, m.IsConnected())
}
