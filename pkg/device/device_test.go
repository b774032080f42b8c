package device

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsEnsureDefaults(t *testing.T) {
	var opts Options
	opts.ensureDefaults()

	assert.Equal(t, 2*time.Second, opts.AckTimeout)
	assert.Equal(t, 250*time.Millisecond, opts.RetryBackoff)
	assert.Equal(t, 0, opts.MaxRetries)
	assert.Equal(t, 0, opts.ConnectRetries)
	assert.Equal(t, DefaultBufferSize, opts.BufferSize)

	// Explicit values survive.
	opts = Options{
		AckTimeout:   time.Second,
		RetryBackoff: 10 * time.Millisecond,
		MaxRetries:   5,
		BufferSize:   16,
	}
	opts.ensureDefaults()
	assert.Equal(t, time.Second, opts.AckTimeout)
	assert.Equal(t, 5, opts.MaxRetries)
	assert.Equal(t, 16, opts.BufferSize)

	// Negative retries clamp to zero.
	opts = Options{MaxRetries: -1, ConnectRetries: -2}
	opts.ensureDefaults()
	assert.Equal(t, 0, opts.MaxRetries)
	assert.Equal(t, 0, opts.ConnectRetries)
}

// runReader feeds scripted device output through the reader goroutine and
// returns its channels.
func runReader(t *testing.T, input string) (<-chan TelemetrySample, <-chan string, <-chan bool, <-chan struct{}) {
	t.Helper()

	d := New("test", DefaultBaudRate, Options{})
	samples := make(chan TelemetrySample, 64)
	lines := make(chan string, 64)
	acks := make(chan bool, 64)
	done := make(chan struct{})

	go d.readLines(context.Background(), strings.NewReader(input), samples, lines, acks, done)
	return samples, lines, acks, done
}

func TestReadLines_RoutesFrames(t *testing.T) {
	input := "Total: 123.4\n" +
		"OK\n" +
		"ERR no such slot\n" +
		"hello world\n" +
		"Total: abc\n" + // malformed, dropped
		"200\n" +
		"\n" // blank, dropped
	samples, lines, acks, done := runReader(t, input)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader did not finish")
	}

	var got []float64
	for s := range samples {
		got = append(got, s.Brightness)
		assert.False(t, s.Timestamp.IsZero())
	}
	assert.Equal(t, []float64{123.4, 200}, got)

	var text []string
	for line := range lines {
		text = append(text, line)
	}
	assert.Equal(t, []string{"hello world"}, text)

	require.Len(t, acks, 2)
	assert.True(t, <-acks)
	assert.False(t, <-acks)
}

func TestReadLines_HandlesCRLF(t *testing.T) {
	samples, _, _, done := runReader(t, "Total: 99.5\r\nTotal: 100.5\r\n")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader did not finish")
	}

	s := <-samples
	assert.Equal(t, 99.5, s.Brightness)
	s = <-samples
	assert.Equal(t, 100.5, s.Brightness)
}

func TestReadLines_ClosesChannelsOnEOF(t *testing.T) {
	samples, lines, _, done := runReader(t, "Total: 1\n")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader did not finish")
	}

	<-samples // the one sample
	_, ok := <-samples
	assert.False(t, ok)
	_, ok = <-lines
	assert.False(t, ok)
}

func TestReadLines_StopsOnCancel(t *testing.T) {
	d := New("test", DefaultBaudRate, Options{})
	samples := make(chan TelemetrySample, 4)
	lines := make(chan string, 4)
	acks := make(chan bool, 4)
	done := make(chan struct{})

	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	go d.readLines(ctx, pr, samples, lines, acks, done)

	_, err := pw.Write([]byte("Total: 5\n"))
	require.NoError(t, err)

	select {
	case s := <-samples:
		assert.Equal(t, 5.0, s.Brightness)
	case <-time.After(time.Second):
		t.Fatal("no sample")
	}

	// Cancel, then unblock the pending read the way Close closes the port.
	cancel()
	require.NoError(t, pw.Close())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader did not stop after cancel")
	}
}

func TestSerial_NotConnected(t *testing.T) {
	d := New("test", 0, Options{})
	ctx := context.Background()

	assert.False(t, d.IsConnected())
	assert.ErrorIs(t, d.SendStar(ctx, StarConfig{Brightness: 50}), ErrNotConnected)
	assert.ErrorIs(t, d.Command(ctx, CmdSave), ErrNotConnected)

	// Close without a connection is a no-op.
	assert.NoError(t, d.Close())
}
