package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/config"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/curve"
)

// Widget is a custom Fyne widget that plots the live light curve: measured
// telemetry in orange with the analytically expected curve overlaid in blue.
type Widget struct {
	widget.BaseWidget

	mu sync.RWMutex

	// Display buffers (reused for downsampling)
	displayMeasured []curve.Point
	displayExpected []curve.Point

	// Auto-scaling
	yMin, yMax float64
	xMin, xMax time.Time

	// Display settings
	maxDisplayPoints int
	windowSeconds    float64
}

// New creates a light-curve widget configured from the plot settings.
func New(cfg *config.Config) *Widget {
	w := &Widget{
		displayMeasured:  make([]curve.Point, 0, cfg.Plot.MaxDisplayPoints),
		displayExpected:  make([]curve.Point, 0, cfg.Plot.MaxDisplayPoints),
		maxDisplayPoints: cfg.Plot.MaxDisplayPoints,
		windowSeconds:    cfg.Plot.WindowSeconds,
	}
	w.ExtendBaseWidget(w)
	w.Refresh()
	return w
}

// SetWindowSeconds changes the visible time window.
func (w *Widget) SetWindowSeconds(seconds float64) {
	if seconds <= 0 {
		return
	}
	w.mu.Lock()
	w.windowSeconds = seconds
	w.mu.Unlock()
	w.Refresh()
}

// WindowSeconds returns the current visible time window. Safe to call from
// any goroutine.
func (w *Widget) WindowSeconds() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.windowSeconds
}

// UpdateData replaces the plotted curves. Call from the UI thread via
// fyne.Do(); the slices are not retained beyond downsampling.
func (w *Widget) UpdateData(measured, expected []curve.Point) {
	w.mu.Lock()

	w.displayMeasured = curve.Downsample(w.displayMeasured, measured, w.maxDisplayPoints)
	w.displayExpected = curve.Downsample(w.displayExpected, expected, w.maxDisplayPoints)

	w.updateAutoScale()

	w.mu.Unlock()

	w.Refresh()
}

// updateAutoScale derives the axis ranges from the displayed data. The Y axis
// always covers the full device brightness range (0-255 plus headroom); the X
// axis tracks the latest sample over the configured window.
func (w *Widget) updateAutoScale() {
	now := time.Now()
	if len(w.displayMeasured) == 0 && len(w.displayExpected) == 0 {
		w.yMin = 0
		w.yMax = 260
		w.xMin = now.Add(-time.Duration(w.windowSeconds * float64(time.Second)))
		w.xMax = now
		return
	}

	lo, hi := 0.0, 260.0
	var latest time.Time
	for _, pts := range [][]curve.Point{w.displayMeasured, w.displayExpected} {
		for _, p := range pts {
			if p.Value-10 < lo {
				lo = p.Value - 10
			}
			if p.Value+10 > hi {
				hi = p.Value + 10
			}
			if p.Timestamp.After(latest) {
				latest = p.Timestamp
			}
		}
	}
	w.yMin = lo
	w.yMax = hi

	window := time.Duration(w.windowSeconds * float64(time.Second))
	if window < time.Second {
		window = time.Second
	}
	w.xMax = latest
	w.xMin = latest.Add(-window)
}

// CreateRenderer creates the widget renderer.
func (w *Widget) CreateRenderer() fyne.WidgetRenderer {
	background := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &lightCurveRenderer{
		scope:    w,
		grid:     background,
		objects:  []fyne.CanvasObject{background},
		lastSize: fyne.Size{Width: 0, Height: 0},
	}
}
