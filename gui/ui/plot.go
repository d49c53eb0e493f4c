package ui

import (
	"fmt"
	"image/color"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"serialplotter/acquisition"
)

const (
	plotMargin    = 48
	plotGridLines = 5
)

// plotRange is the data-space rectangle shown by the plot
type plotRange struct {
	xMin, xMax float64
	yMin, yMax float64
}

// computeRange follows the newest sample: x spans at least the window ending
// at the latest sample, y always includes [yMin, yMax]. Both grow to fit every
// sample passed in. NaN and infinite values do not affect y.
func computeRange(samples []acquisition.Sample, window, yMin, yMax float64) plotRange {
	r := plotRange{xMin: 0, xMax: window, yMin: yMin, yMax: yMax}
	if len(samples) == 0 {
		return r
	}

	latest := samples[len(samples)-1].Elapsed
	r.xMin = min(latest-window, samples[0].Elapsed)
	r.xMax = latest
	for _, s := range samples {
		if !drawable(s) {
			continue
		}
		r.yMin = min(r.yMin, s.Value)
		r.yMax = max(r.yMax, s.Value)
	}
	if r.yMax == r.yMin {
		r.yMax = r.yMin + 1
	}
	return r
}

// drawable reports whether a sample has a plottable value
func drawable(s acquisition.Sample) bool {
	return !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0)
}

// project maps a sample into a drawing area of the given size, origin top left
func (r plotRange) project(s acquisition.Sample, size fyne.Size) fyne.Position {
	fx := (s.Elapsed - r.xMin) / (r.xMax - r.xMin)
	fy := (s.Value - r.yMin) / (r.yMax - r.yMin)
	return fyne.NewPos(
		float32(fx)*size.Width,
		size.Height-float32(fy)*size.Height,
	)
}

// PlotWidget draws the window as a polyline with a labelled grid
type PlotWidget struct {
	widget.BaseWidget

	samples []acquisition.Sample
	window  float64
	yMin    float64
	yMax    float64
}

// NewPlotWidget creates an empty plot with fixed y bounds
func NewPlotWidget(window, yMin, yMax float64) *PlotWidget {
	p := &PlotWidget{window: window, yMin: yMin, yMax: yMax}
	p.ExtendBaseWidget(p)
	return p
}

// SetData replaces the plotted samples. It must be called on the UI goroutine.
func (p *PlotWidget) SetData(samples []acquisition.Sample, window float64) {
	p.samples = samples
	p.window = window
	p.Refresh()
}

// CreateRenderer implements fyne.Widget
func (p *PlotWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &plotRenderer{
		plot:   p,
		frame:  canvas.NewRectangle(color.Transparent),
		empty:  canvas.NewText("No data to display. Start collection to see data.", theme.Color(theme.ColorNameForeground)),
		xLabel: canvas.NewText("Time (s)", theme.Color(theme.ColorNameForeground)),
	}
	r.frame.StrokeColor = theme.Color(theme.ColorNameForeground)
	r.frame.StrokeWidth = 1
	r.empty.Alignment = fyne.TextAlignCenter
	r.xLabel.TextSize = theme.CaptionTextSize()
	r.rebuild()
	return r
}

type plotRenderer struct {
	plot   *PlotWidget
	size   fyne.Size
	frame  *canvas.Rectangle
	empty  *canvas.Text
	xLabel *canvas.Text
	grid   []fyne.CanvasObject
	lines  []fyne.CanvasObject
}

func (r *plotRenderer) Layout(size fyne.Size) {
	r.size = size
	r.rebuild()
}

func (r *plotRenderer) MinSize() fyne.Size {
	return fyne.NewSize(320, 200)
}

func (r *plotRenderer) Refresh() {
	r.rebuild()
	canvas.Refresh(r.plot)
}

func (r *plotRenderer) Objects() []fyne.CanvasObject {
	objects := []fyne.CanvasObject{r.frame, r.xLabel}
	objects = append(objects, r.grid...)
	objects = append(objects, r.lines...)
	if len(r.plot.samples) == 0 {
		objects = append(objects, r.empty)
	}
	return objects
}

func (r *plotRenderer) Destroy() {}

func (r *plotRenderer) rebuild() {
	area := fyne.NewSize(r.size.Width-2*plotMargin, r.size.Height-2*plotMargin)
	if area.Width <= 0 || area.Height <= 0 {
		r.grid, r.lines = nil, nil
		return
	}
	origin := fyne.NewPos(plotMargin, plotMargin)

	r.frame.Move(origin)
	r.frame.Resize(area)
	r.empty.Move(origin.AddXY(0, area.Height/2))
	r.empty.Resize(fyne.NewSize(area.Width, theme.TextSize()))
	r.xLabel.Move(origin.AddXY(area.Width/2, area.Height+plotMargin/2))

	samples := r.plot.samples
	pr := computeRange(samples, r.plot.window, r.plot.yMin, r.plot.yMax)

	r.grid = r.grid[:0]
	gridColor := theme.Color(theme.ColorNameSeparator)
	labelColor := theme.Color(theme.ColorNameForeground)
	for i := 0; i <= plotGridLines; i++ {
		f := float32(i) / plotGridLines
		y := origin.Y + area.Height*(1-f)
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(origin.X, y)
		line.Position2 = fyne.NewPos(origin.X+area.Width, y)

		yValue := pr.yMin + float64(f)*(pr.yMax-pr.yMin)
		yText := canvas.NewText(fmt.Sprintf("%.4g", yValue), labelColor)
		yText.TextSize = theme.CaptionTextSize()
		yText.Alignment = fyne.TextAlignTrailing
		yText.Move(fyne.NewPos(0, y-yText.TextSize/2))
		yText.Resize(fyne.NewSize(plotMargin-4, yText.TextSize))

		x := origin.X + area.Width*f
		xValue := pr.xMin + float64(f)*(pr.xMax-pr.xMin)
		xText := canvas.NewText(fmt.Sprintf("%.1f", xValue), labelColor)
		xText.TextSize = theme.CaptionTextSize()
		xText.Move(fyne.NewPos(x-xText.TextSize, origin.Y+area.Height+4))

		r.grid = append(r.grid, line, yText, xText)
	}

	r.lines = r.lines[:0]
	lineColor := theme.Color(theme.ColorNamePrimary)
	for i := 1; i < len(samples); i++ {
		// A gap is left around values that cannot be drawn
		if !drawable(samples[i-1]) || !drawable(samples[i]) {
			continue
		}
		seg := canvas.NewLine(lineColor)
		seg.StrokeWidth = 2
		seg.Position1 = origin.Add(pr.project(samples[i-1], area))
		seg.Position2 = origin.Add(pr.project(samples[i], area))
		r.lines = append(r.lines, seg)
	}
}
