package device

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/logger"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/transit"
)

// Options tunes the link behavior. Zero values fall back to defaults.
type Options struct {
	AckTimeout     time.Duration // wait per command before a retry
	RetryBackoff   time.Duration // base backoff, grows linearly per attempt
	MaxRetries     int           // command resends after the first timeout
	ConnectRetries int           // additional open attempts on transient failure
	BufferSize     int           // telemetry channel capacity
}

func (o *Options) ensureDefaults() {
	if o.AckTimeout <= 0 {
		o.AckTimeout = 2 * time.Second
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 250 * time.Millisecond
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.ConnectRetries < 0 {
		o.ConnectRetries = 0
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
}

// closeWait bounds how long Close waits for the reader goroutine to stop
// before giving up on it.
const closeWait = 2 * time.Second

// Serial is the link to the star device over a serial port.
type Serial struct {
	port     string
	baudRate int
	opts     Options
	log      *logger.Logger

	mu        sync.RWMutex
	conn      io.ReadWriteCloser
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	samples   chan TelemetrySample
	lines     chan string
	acks      chan bool

	sendMu sync.Mutex // serializes command/ack exchanges
}

// New creates a Serial link for the given port. It does not open the port;
// call Connect. A Serial is reusable across Connect/Close cycles.
func New(port string, baudRate int, opts Options) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	opts.ensureDefaults()

	return &Serial{
		port:     port,
		baudRate: baudRate,
		opts:     opts,
		log:      logger.Get(logger.InfoLevel),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(names))
	for _, name := range names {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port and starts the reader goroutine. Transient
// open failures are retried with linear backoff up to the configured bound.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{BaudRate: d.baudRate}

	var (
		conn serial.Port
		err  error
	)
	for attempt := 0; attempt <= d.opts.ConnectRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(d.opts.RetryBackoff * time.Duration(attempt))
		}
		conn, err = serial.Open(d.port, mode)
		if err == nil {
			break
		}
		d.log.Warnf("open %s failed (attempt %d/%d): %v", d.port, attempt+1, d.opts.ConnectRetries+1, err)
	}
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.startSession(conn)
	return nil
}

// startSession wires a fresh set of channels to the given connection and
// launches the reader. Callers hold d.mu.
func (d *Serial) startSession(conn io.ReadWriteCloser) {
	d.conn = conn
	d.connected = true
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.done = make(chan struct{})
	d.samples = make(chan TelemetrySample, d.opts.BufferSize)
	d.lines = make(chan string, 32)
	d.acks = make(chan bool, 4)

	go d.readLines(d.ctx, conn, d.samples, d.lines, d.acks, d.done)
}

// Close signals the reader to stop before its next read, closes the port and
// waits for the goroutine with a bounded timeout. The telemetry and text
// channels are closed by the reader on exit.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()
	// Closing the port unblocks a reader stuck in a blocking read.
	if err := d.conn.Close(); err != nil {
		d.log.Warnf("error closing serial port: %v", err)
	}

	select {
	case <-d.done:
	case <-time.After(closeWait):
		d.log.Warnf("reader did not stop within %v", closeWait)
	}

	d.conn = nil
	d.connected = false
	return nil
}

// Samples returns the telemetry channel for the current connection. The
// channel is closed when the link goes down; reconnecting yields a fresh one.
func (d *Serial) Samples() <-chan TelemetrySample {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.samples
}

// Lines returns non-telemetry device output (LIST responses, boot messages).
func (d *Serial) Lines() <-chan string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lines
}

// IsConnected returns whether the link is currently open.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// SendStar validates and transmits the star configuration.
func (d *Serial) SendStar(ctx context.Context, cfg StarConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return d.sendCommand(ctx, encodeStar(cfg), true)
}

// SendPlanets validates and transmits the planet list: first the slot count,
// then one row per planet, each acknowledged individually.
func (d *Serial) SendPlanets(ctx context.Context, planets []transit.Planet) error {
	if len(planets) > MaxPlanets {
		return fmt.Errorf("%d planets exceed the device limit of %d", len(planets), MaxPlanets)
	}
	for _, p := range planets {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	if err := d.sendCommand(ctx, encodeCount(len(planets)), true); err != nil {
		return fmt.Errorf("set planet count: %w", err)
	}
	for _, p := range planets {
		if err := d.sendCommand(ctx, encodePlanet(p), true); err != nil {
			return fmt.Errorf("send planet %q: %w", p.Name, err)
		}
	}
	return nil
}

// Command sends a bare firmware command (SAVE, LOAD, RESETCFG, LIST, HELP).
func (d *Serial) Command(ctx context.Context, cmd string) error {
	return d.sendCommand(ctx, cmd, commandWantsAck(cmd))
}

// sendCommand writes one line and, when the firmware acknowledges the
// command, waits for the ack. Timeouts are retried with linear backoff up to
// the configured bound; a nack is permanent and returned immediately.
func (d *Serial) sendCommand(ctx context.Context, line string, wantAck bool) error {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()

	for attempt := 0; attempt <= d.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.opts.RetryBackoff * time.Duration(attempt)):
			}
		}

		if err := d.writeLine(line); err != nil {
			return err
		}
		if !wantAck {
			return nil
		}

		ok, err := d.waitAck(ctx)
		if err == nil {
			if !ok {
				return fmt.Errorf("%w: %s", ErrNack, line)
			}
			return nil
		}
		if err != ErrAckTimeout {
			return err
		}
		d.log.Warnf("no ack for %q (attempt %d/%d)", line, attempt+1, d.opts.MaxRetries+1)
	}

	return fmt.Errorf("%w: %s", ErrAckTimeout, line)
}

func (d *Serial) writeLine(line string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	// Drop a stale ack left over from a previous exchange.
	select {
	case <-d.acks:
	default:
	}

	if _, err := d.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("serial write failed: %w", err)
	}
	return nil
}

func (d *Serial) waitAck(ctx context.Context) (bool, error) {
	d.mu.RLock()
	acks := d.acks
	timeout := d.opts.AckTimeout
	d.mu.RUnlock()

	select {
	case ok, open := <-acks:
		if !open {
			return false, ErrNotConnected
		}
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(timeout):
		return false, ErrAckTimeout
	}
}

// readLines reads frames from the port until the context is canceled or the
// port fails, classifying each into telemetry, acks or free text. Telemetry
// timestamps use host receive time, which is monotonic. When the telemetry
// channel is full the newest sample is dropped so ingestion never blocks.
func (d *Serial) readLines(ctx context.Context, conn io.Reader, samples chan<- TelemetrySample, lines chan<- string, acks chan<- bool, done chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("panic in reader: %v", r)
		}
		close(samples)
		close(lines)
		close(done)
	}()

	scanner := bufio.NewScanner(conn)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && err != io.EOF && ctx.Err() == nil {
				d.log.Errorf("serial read error: %v", err)
			}
			return
		}

		kind, value, err := classifyLine(scanner.Text())
		if err != nil {
			// Malformed frame: drop it and keep the stream alive.
			d.log.Warnf("dropping frame: %v", err)
			continue
		}

		switch kind {
		case lineTelemetry:
			sample := TelemetrySample{Timestamp: time.Now(), Brightness: value}
			select {
			case samples <- sample:
			default:
				d.log.Debugf("telemetry buffer full, dropping sample")
			}
		case lineAck:
			select {
			case acks <- true:
			default:
			}
		case lineNack:
			select {
			case acks <- false:
			default:
			}
		case lineText:
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			select {
			case lines <- text:
			default:
			}
		}
	}
}
