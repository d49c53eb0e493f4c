package ui

import (
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"serialplotter/acquisition"
	"serialplotter/config"
	"serialplotter/serial"
)

const aboutURL = "https://www.cloakycodes.me"

// PlotterTab is the acquisition view: connection controls on the right and
// the live plot in the center. All session calls happen on the UI goroutine.
type PlotterTab struct {
	session  *acquisition.Session
	cfg      *config.Config
	logger   *slog.Logger
	interval time.Duration

	portSel  *widget.Select
	baudSel  *widget.Select
	slider   *widget.Slider
	sliderLb *widget.Label
	startBtn *widget.Button
	stopBtn  *widget.Button
	refresh  *widget.Button
	status   *widget.Label
	target   *widget.Label
	plot     *PlotWidget

	stopTick chan struct{}
}

// NewPlotterTab creates the plotter for session
func NewPlotterTab(session *acquisition.Session, cfg *config.Config, logger *slog.Logger) *PlotterTab {
	return &PlotterTab{
		session:  session,
		cfg:      cfg,
		logger:   logger,
		interval: cfg.Poll.GetInterval(),
		stopTick: make(chan struct{}),
	}
}

// Build constructs the plotter UI and starts the poll ticker
func (p *PlotterTab) Build() fyne.CanvasObject {
	p.portSel = widget.NewSelect(nil, nil)
	p.portSel.PlaceHolder = "Select a port"

	baudOptions := make([]string, 0, len(config.ValidBaudRates))
	for _, rate := range config.ValidBaudRates {
		baudOptions = append(baudOptions, strconv.Itoa(rate))
	}
	p.baudSel = widget.NewSelect(baudOptions, nil)
	p.baudSel.SetSelected(strconv.Itoa(p.cfg.Serial.BaudRate))

	lo, hi := p.session.WindowBounds()
	p.slider = widget.NewSlider(lo, hi)
	p.slider.Step = 1
	p.sliderLb = widget.NewLabel("")
	p.slider.OnChanged = func(v float64) {
		applied := p.session.SetWindowLength(v)
		p.sliderLb.SetText(fmt.Sprintf("Window Length: %.0f s", applied))
	}
	p.slider.SetValue(p.session.WindowLength())

	p.startBtn = widget.NewButton("Start", p.start)
	p.startBtn.Importance = widget.SuccessImportance
	p.stopBtn = widget.NewButton("Stop", p.stop)
	p.stopBtn.Importance = widget.DangerImportance

	p.refresh = widget.NewButton("Refresh Ports", p.refreshPorts)
	p.status = widget.NewLabel("")
	p.status.Wrapping = fyne.TextWrapWord
	p.target = widget.NewLabel("")

	about, _ := url.Parse(aboutURL)
	header := container.NewBorder(nil, nil,
		widget.NewLabelWithStyle("Serial Data Plotter", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(p.refresh, widget.NewHyperlink("About", about)),
	)

	side := container.NewVBox(
		widget.NewLabelWithStyle("Configuration", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewLabel("Select Serial Port:"),
		p.portSel,
		widget.NewLabel("Select Baud Rate:"),
		p.baudSel,
		p.target,
		widget.NewSeparator(),
		p.sliderLb,
		p.slider,
		widget.NewSeparator(),
		p.startBtn,
		p.stopBtn,
		widget.NewLabel("Make sure your device is connected and sending data."),
		p.status,
	)

	p.plot = NewPlotWidget(p.session.WindowLength(), p.cfg.Plot.YMin, p.cfg.Plot.YMax)

	p.refreshPorts()
	if p.cfg.Serial.Device != "" {
		p.portSel.SetSelected(p.cfg.Serial.Device)
	}
	p.updateControls()

	go p.tickLoop()

	return container.NewBorder(
		container.NewVBox(header, widget.NewSeparator()),
		nil,
		nil,
		container.NewPadded(side),
		p.plot,
	)
}

// Close stops the ticker and the session
func (p *PlotterTab) Close() {
	close(p.stopTick)
	p.session.Stop()
}

func (p *PlotterTab) tickLoop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fyne.Do(p.poll)
		case <-p.stopTick:
			return
		}
	}
}

func (p *PlotterTab) poll() {
	wasRunning := p.session.IsRunning()
	samples := p.session.Poll()
	p.plot.SetData(samples, p.session.WindowLength())

	if wasRunning && !p.session.IsRunning() {
		p.updateControls()
	}
}

func (p *PlotterTab) start() {
	baud, err := strconv.Atoi(p.baudSel.Selected)
	if err != nil {
		baud = serial.DefaultBaudRate
	}

	if err := p.session.Start(acquisition.Target{Device: p.portSel.Selected, BaudRate: baud}); err != nil {
		p.status.SetText("Please select a serial port.")
		return
	}
	p.updateControls()
}

func (p *PlotterTab) stop() {
	p.session.Stop()
	p.updateControls()
}

func (p *PlotterTab) refreshPorts() {
	if p.session.IsRunning() {
		return
	}

	ports, err := p.session.ListConnections()
	if err != nil {
		p.logger.Warn("Failed to list serial ports", "error", err)
		ports = nil
	}

	names := make([]string, 0, len(ports))
	for _, port := range ports {
		names = append(names, port.Name)
	}
	// Configured devices such as pseudo terminals are not always enumerated.
	if dev := p.cfg.Serial.Device; dev != "" && !slices.Contains(names, dev) {
		names = append(names, dev)
	}
	p.portSel.Options = names
	if p.portSel.Selected != "" && !slices.Contains(names, p.portSel.Selected) {
		p.portSel.ClearSelected()
	}
	p.portSel.Refresh()
}

// updateControls mirrors the session state: selectors are only editable
// while idle
func (p *PlotterTab) updateControls() {
	status := p.session.Status()

	if p.session.IsRunning() {
		p.portSel.Disable()
		p.baudSel.Disable()
		p.refresh.Disable()
		p.startBtn.Disable()
		p.stopBtn.Enable()
		p.target.SetText(fmt.Sprintf("Port: %s\nBaud Rate: %d", status.Target.Device, status.Target.BaudRate))
		p.status.SetText("Collecting data")
		return
	}

	p.portSel.Enable()
	p.baudSel.Enable()
	p.refresh.Enable()
	p.startBtn.Enable()
	p.stopBtn.Disable()
	p.target.SetText("")
	if status.LastError != "" {
		p.status.SetText("Stopped: " + status.LastError)
	} else {
		p.status.SetText("Idle")
	}
}
