package main

import (
	"flag"
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/config"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/curve"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/device"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/logger"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/scope"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/session"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/transit"
)

// uiRefreshInterval is how often the plot is redrawn from the buffer.
const uiRefreshInterval = 100 * time.Millisecond

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use mocked device instead of serial port")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		return
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	log := logger.Get(cfg.Log.Level)

	starCfg, err := session.LoadConfig(cfg.StarFile)
	if err != nil {
		log.Warnf("failed to load star config, using defaults: %v", err)
		starCfg = session.DefaultConfig()
	}

	application := app.NewWithID("com.nick140pk.starprog")

	window := application.NewWindow("Star Programmer + Light-Curve Plotter")
	window.Resize(fyne.NewSize(1100, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		log:        log,
		window:     window,
		useMock:    *mockFlag,
		starCfg:    starCfg,
	}

	toolbar := createToolbar(state)

	scopeWidget := scope.New(cfg)
	state.scopeWidget = scopeWidget

	editor := createEditor(state)
	writeEditor(state, starCfg)

	content := container.NewBorder(
		toolbar,
		nil,
		editor,
		nil,
		scopeWidget,
	)

	window.SetContent(content)
	window.SetOnClosed(func() {
		disconnect(state)
	})
	window.ShowAndRun()
}

// plotChain tracks the live telemetry pipeline for graceful teardown.
type plotChain struct {
	sess      *session.Session
	buffer    *curve.Buffer
	t0        time.Time     // connect time, origin of the expected curve
	stopUI    chan struct{} // closed to stop the refresh goroutine
	ingestOut chan struct{} // closed when the ingest goroutine exits
	linesOut  chan struct{} // closed when the device-text goroutine exits
	uiOut     chan struct{} // closed when the refresh goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg        *config.Config
	configPath string
	log        *logger.Logger
	window     fyne.Window

	scopeWidget *scope.Widget
	connectBtn  *widget.Button
	statusLabel *widget.Label

	useMock bool
	starCfg session.Config
	chain   *plotChain

	// Editor widgets
	starEntries   starEntries
	planetRows    [device.MaxPlanets]planetRow
	actionButtons []*widget.Button

	mu sync.Mutex // guards chain transitions
}

// createToolbar builds the toolbar: connect and settings on the left, device
// actions on the right.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("Connect", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	statusLabel := widget.NewLabel("DISCONNECTED")
	state.statusLabel = statusLabel

	programBtn := widget.NewButton("Program", func() { handleProgram(state) })
	saveBtn := widget.NewButton("Save", func() { handleDeviceCommand(state, device.CmdSave) })
	loadBtn := widget.NewButton("Load", func() { handleDeviceCommand(state, device.CmdLoad) })
	resetBtn := widget.NewButton("Reset", func() { handleDeviceReset(state) })
	listBtn := widget.NewButton("List", func() { handleDeviceCommand(state, device.CmdList) })

	state.actionButtons = []*widget.Button{programBtn, saveBtn, loadBtn, resetBtn, listBtn}
	setActionsEnabled(state, false)

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(connectBtn, settingsBtn, statusLabel),
		container.NewHBox(programBtn, saveBtn, loadBtn, resetBtn, listBtn),
		nil,
	)
}

func setActionsEnabled(state *appState, enabled bool) {
	for _, btn := range state.actionButtons {
		if enabled {
			btn.Enable()
		} else {
			btn.Disable()
		}
	}
}

// handleConnect toggles the connection and the telemetry chain.
func handleConnect(state *appState) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.chain != nil {
		teardownChain(state)
		state.connectBtn.SetText("Connect")
		state.statusLabel.SetText("DISCONNECTED")
		setActionsEnabled(state, false)
		state.log.Infof("disconnected")
		return
	}

	var dev device.Device
	if state.useMock {
		dev = device.NewMock(&state.cfg.Mock)
	} else {
		dev = device.New(state.cfg.Serial.Port, state.cfg.Serial.Baud, device.Options{
			AckTimeout:     state.cfg.Link.AckTimeout,
			RetryBackoff:   state.cfg.Link.RetryBackoff,
			MaxRetries:     state.cfg.Link.MaxRetries,
			ConnectRetries: state.cfg.Link.ConnectRetries,
			BufferSize:     state.cfg.Link.BufferSize,
		})
	}

	if err := dev.Connect(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
		return
	}

	sess := session.New(dev, state.starCfg)
	state.chain = startChain(state, sess)

	state.connectBtn.SetText("Disconnect")
	if state.useMock {
		state.statusLabel.SetText("Connected: mock")
	} else {
		state.statusLabel.SetText(fmt.Sprintf("Connected: %s @ %d", state.cfg.Serial.Port, state.cfg.Serial.Baud))
	}
	setActionsEnabled(state, true)
	state.log.Infof("session %s connected", sess.ID())
}

// startChain wires device telemetry into the plot buffer and starts the
// periodic scope refresh. The ingest goroutine is the buffer's only writer.
func startChain(state *appState, sess *session.Session) *plotChain {
	chain := &plotChain{
		sess:      sess,
		buffer:    curve.NewBuffer(state.cfg.Plot.BufferCapacity),
		t0:        time.Now(),
		stopUI:    make(chan struct{}),
		ingestOut: make(chan struct{}),
		linesOut:  make(chan struct{}),
		uiOut:     make(chan struct{}),
	}

	dev := sess.Device()

	go func() {
		defer close(chain.ingestOut)
		for s := range dev.Samples() {
			chain.buffer.Push(curve.Point{Timestamp: s.Timestamp, Value: s.Brightness})
		}
	}()

	go func() {
		defer close(chain.linesOut)
		for line := range dev.Lines() {
			state.log.Infof("device: %s", line)
		}
	}()

	go func() {
		defer close(chain.uiOut)
		ticker := time.NewTicker(uiRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-chain.stopUI:
				return
			case <-ticker.C:
				refreshScope(state, chain)
			}
		}
	}()

	return chain
}

// refreshScope snapshots the window of measured points, computes the expected
// overlay for the pushed configuration and hands both to the widget. It runs
// off the Fyne thread, so the window comes from the widget's own synchronized
// value rather than the config struct the settings tabs mutate.
func refreshScope(state *appState, chain *plotChain) {
	window := time.Duration(state.scopeWidget.WindowSeconds() * float64(time.Second))
	cutoff := time.Now().Add(-window)
	measured := chain.buffer.Since(cutoff)

	var expected []curve.Point
	if chain.sess.Pushed() {
		expected = expectedOverlay(chain.sess.Config(), measured, chain.t0)
	}

	fyne.Do(func() {
		state.scopeWidget.UpdateData(measured, expected)
	})
}

// expectedOverlay evaluates the transit model at each measured timestamp,
// scaled to the same device units the telemetry uses.
func expectedOverlay(cfg session.Config, measured []curve.Point, t0 time.Time) []curve.Point {
	if len(measured) == 0 {
		return nil
	}
	scale := 255.0 * float64(cfg.Star.Brightness) / 100.0
	out := make([]curve.Point, len(measured))
	for i, p := range measured {
		out[i] = curve.Point{
			Timestamp: p.Timestamp,
			Value:     scale * transit.ExpectedBrightness(cfg.Planets, p.Timestamp.Sub(t0)),
		}
	}
	return out
}

// teardownChain closes the session and waits for every goroutine to exit.
// Callers hold state.mu.
func teardownChain(state *appState) {
	chain := state.chain
	if chain == nil {
		return
	}

	close(chain.stopUI)
	<-chain.uiOut

	if err := chain.sess.Close(); err != nil {
		state.log.Warnf("error closing session: %v", err)
	}
	<-chain.ingestOut
	<-chain.linesOut

	state.chain = nil
}

// disconnect tears the chain down on window close.
func disconnect(state *appState) {
	state.mu.Lock()
	defer state.mu.Unlock()
	teardownChain(state)
}
