package scope

import (
	"image/color"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/chewxy/math32"

	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/curve"
)

var (
	colorGrid     = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	colorLabel    = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	colorMeasured = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // orange
	colorExpected = color.RGBA{R: 100, G: 200, B: 255, A: 255} // light blue
)

// lightCurveRenderer renders the light-curve widget.
type lightCurveRenderer struct {
	scope *Widget

	// Background
	grid *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *lightCurveRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *lightCurveRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize.Width != size.Width || r.lastSize.Height != size.Height {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the plot from the current data.
func (r *lightCurveRenderer) Refresh() {
	r.scope.mu.RLock()
	measured := r.scope.displayMeasured
	expected := r.scope.displayExpected
	yMin := r.scope.yMin
	yMax := r.scope.yMax
	xMin := r.scope.xMin
	xMax := r.scope.xMax
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	// Clear old objects (but keep the background)
	r.objects = []fyne.CanvasObject{r.grid}

	marginLeft := float32(60.0)
	marginRight := float32(20.0)
	marginTop := float32(20.0)
	marginBottom := float32(40.0)

	plot := plotArea{
		x:      marginLeft,
		y:      marginTop,
		width:  size.Width - marginLeft - marginRight,
		height: size.Height - marginTop - marginBottom,
		yMin:   yMin,
		yMax:   yMax,
		xMin:   xMin,
		xMax:   xMax,
	}

	r.drawGrid(plot)
	r.drawCurve(plot, expected, colorExpected, 2.5)
	r.drawCurve(plot, measured, colorMeasured, 1.5)
}

// plotArea maps data coordinates into widget coordinates.
type plotArea struct {
	x, y          float32
	width, height float32
	yMin, yMax    float64
	xMin, xMax    time.Time
}

func (p plotArea) toX(t time.Time) float32 {
	span := p.xMax.Sub(p.xMin).Seconds()
	if span <= 0 {
		return p.x
	}
	x := p.x + float32(t.Sub(p.xMin).Seconds()/span)*p.width
	return math32.Min(math32.Max(x, p.x), p.x+p.width)
}

func (p plotArea) toY(v float64) float32 {
	span := p.yMax - p.yMin
	if span <= 0 {
		return p.y + p.height
	}
	y := p.y + p.height - float32((v-p.yMin)/span)*p.height
	return math32.Min(math32.Max(y, p.y), p.y+p.height)
}

// drawGrid draws the oscilloscope-style grid with axis labels.
func (r *lightCurveRenderer) drawGrid(p plotArea) {
	// Horizontal grid lines (brightness)
	numHLines := 8
	for i := 0; i <= numHLines; i++ {
		y := p.y + float32(i)*p.height/float32(numHLines)
		line := canvas.NewLine(colorGrid)
		line.Position1 = fyne.NewPos(p.x, y)
		line.Position2 = fyne.NewPos(p.x+p.width, y)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		value := p.yMax - float64(i)*(p.yMax-p.yMin)/float64(numHLines)
		text := canvas.NewText(formatBrightness(value), colorLabel)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(p.x-5, y-6))
		r.objects = append(r.objects, text)
	}

	// Vertical grid lines (time)
	numVLines := 10
	for i := 0; i <= numVLines; i++ {
		x := p.x + float32(i)*p.width/float32(numVLines)
		line := canvas.NewLine(colorGrid)
		line.Position1 = fyne.NewPos(x, p.y)
		line.Position2 = fyne.NewPos(x, p.y+p.height)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		offset := float64(i) * p.xMax.Sub(p.xMin).Seconds() / float64(numVLines)
		text := canvas.NewText(formatSeconds(offset), colorLabel)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, p.y+p.height+5))
		r.objects = append(r.objects, text)
	}
}

// drawCurve draws one polyline in the given color.
func (r *lightCurveRenderer) drawCurve(p plotArea, points []curve.Point, c color.RGBA, stroke float32) {
	if len(points) < 2 {
		return
	}

	prev := fyne.NewPos(p.toX(points[0].Timestamp), p.toY(points[0].Value))
	for _, pt := range points[1:] {
		pos := fyne.NewPos(p.toX(pt.Timestamp), p.toY(pt.Value))
		line := canvas.NewLine(c)
		line.Position1 = prev
		line.Position2 = pos
		line.StrokeWidth = stroke
		r.objects = append(r.objects, line)
		prev = pos
	}
}

// Objects returns all canvas objects for rendering.
func (r *lightCurveRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *lightCurveRenderer) Destroy() {
	// Cleanup handled by Fyne
}

func formatBrightness(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 1, 64) + "s"
}
