package ui

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"serialplotter/config"
)

// SettingsTab edits the configuration file shared with the headless service
type SettingsTab struct {
	configPath string
	config     *config.Config
	window     fyne.Window
	form       *widget.Form

	deviceEntry    *widget.Entry
	baudSelect     *widget.Select
	paritySelect   *widget.Select
	timeoutEntry   *widget.Entry
	windowEntry    *widget.Entry
	pollEntry      *widget.Entry
	yMinEntry      *widget.Entry
	yMaxEntry      *widget.Entry
	restartCheck   *widget.Check
	reconnectEntry *widget.Entry
}

// NewSettingsTab creates a settings tab for the file at configPath. An empty
// path edits a copy of cfg that can only be saved once a path is chosen.
func NewSettingsTab(window fyne.Window, cfg *config.Config, configPath string) *SettingsTab {
	clone := *cfg
	return &SettingsTab{
		configPath: configPath,
		config:     &clone,
		window:     window,
	}
}

// Build constructs the settings UI
func (s *SettingsTab) Build() fyne.CanvasObject {
	s.deviceEntry = widget.NewEntry()
	s.deviceEntry.SetPlaceHolder("/dev/ttyUSB0")

	baudOptions := make([]string, 0, len(config.ValidBaudRates))
	for _, rate := range config.ValidBaudRates {
		baudOptions = append(baudOptions, strconv.Itoa(rate))
	}
	s.baudSelect = widget.NewSelect(baudOptions, nil)
	s.paritySelect = widget.NewSelect([]string{"none", "odd", "even", "mark", "space"}, nil)
	s.timeoutEntry = widget.NewEntry()
	s.windowEntry = widget.NewEntry()
	s.pollEntry = widget.NewEntry()
	s.yMinEntry = widget.NewEntry()
	s.yMaxEntry = widget.NewEntry()
	s.restartCheck = widget.NewCheck("", nil)
	s.reconnectEntry = widget.NewEntry()

	s.form = widget.NewForm(
		widget.NewFormItem("Device", s.deviceEntry),
		widget.NewFormItem("Baud Rate", s.baudSelect),
		widget.NewFormItem("Parity", s.paritySelect),
		widget.NewFormItem("Read Timeout (ms)", s.timeoutEntry),
		widget.NewFormItem("Window Length (s)", s.windowEntry),
		widget.NewFormItem("Poll Interval (ms)", s.pollEntry),
		widget.NewFormItem("Plot Y Min", s.yMinEntry),
		widget.NewFormItem("Plot Y Max", s.yMaxEntry),
		widget.NewFormItem("Auto Restart", s.restartCheck),
		widget.NewFormItem("Reconnect Delay (s)", s.reconnectEntry),
	)
	s.populate()

	pathEntry := widget.NewEntry()
	pathEntry.SetText(s.configPath)
	pathEntry.SetPlaceHolder("config.json")
	pathEntry.OnChanged = func(path string) {
		s.configPath = path
	}

	saveBtn := widget.NewButton("Save Configuration", func() {
		s.saveConfig()
	})
	saveBtn.Importance = widget.HighImportance

	reloadBtn := widget.NewButton("Reload Configuration", func() {
		s.loadConfig()
	})

	infoLabel := widget.NewLabel("The service reads this file on start. Restart it to apply changes.")
	infoLabel.Wrapping = fyne.TextWrapWord

	return container.NewBorder(
		container.NewVBox(
			widget.NewLabel("Configuration file"),
			pathEntry,
			infoLabel,
			widget.NewSeparator(),
		),
		container.NewHBox(saveBtn, reloadBtn),
		nil,
		nil,
		container.NewVScroll(s.form),
	)
}

// populate copies the configuration into the form
func (s *SettingsTab) populate() {
	c := s.config
	s.deviceEntry.SetText(c.Serial.Device)
	s.baudSelect.SetSelected(strconv.Itoa(c.Serial.BaudRate))
	s.paritySelect.SetSelected(c.Serial.Parity)
	s.timeoutEntry.SetText(strconv.Itoa(c.Serial.ReadTimeoutMs))
	s.windowEntry.SetText(strconv.FormatFloat(c.Window.LengthSec, 'g', -1, 64))
	s.pollEntry.SetText(strconv.Itoa(c.Poll.IntervalMs))
	s.yMinEntry.SetText(strconv.FormatFloat(c.Plot.YMin, 'g', -1, 64))
	s.yMaxEntry.SetText(strconv.FormatFloat(c.Plot.YMax, 'g', -1, 64))
	s.restartCheck.SetChecked(c.Recovery.AutoRestart)
	s.reconnectEntry.SetText(strconv.Itoa(c.Recovery.ReconnectDelaySec))
}

// collect copies the form into a new configuration
func (s *SettingsTab) collect() (*config.Config, error) {
	next := *s.config
	var err error

	next.Serial.Device = s.deviceEntry.Text
	if next.Serial.BaudRate, err = strconv.Atoi(s.baudSelect.Selected); err != nil {
		return nil, fmt.Errorf("invalid baud rate: %w", err)
	}
	next.Serial.Parity = s.paritySelect.Selected
	if next.Serial.ReadTimeoutMs, err = strconv.Atoi(s.timeoutEntry.Text); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if next.Window.LengthSec, err = strconv.ParseFloat(s.windowEntry.Text, 64); err != nil {
		return nil, fmt.Errorf("invalid window length: %w", err)
	}
	if next.Poll.IntervalMs, err = strconv.Atoi(s.pollEntry.Text); err != nil {
		return nil, fmt.Errorf("invalid poll interval: %w", err)
	}
	if next.Plot.YMin, err = strconv.ParseFloat(s.yMinEntry.Text, 64); err != nil {
		return nil, fmt.Errorf("invalid plot y min: %w", err)
	}
	if next.Plot.YMax, err = strconv.ParseFloat(s.yMaxEntry.Text, 64); err != nil {
		return nil, fmt.Errorf("invalid plot y max: %w", err)
	}
	next.Recovery.AutoRestart = s.restartCheck.Checked
	if next.Recovery.ReconnectDelaySec, err = strconv.Atoi(s.reconnectEntry.Text); err != nil {
		return nil, fmt.Errorf("invalid reconnect delay: %w", err)
	}

	if err := config.Validate(&next); err != nil {
		return nil, err
	}
	return &next, nil
}

// loadConfig loads the configuration from file
func (s *SettingsTab) loadConfig() {
	if s.configPath == "" {
		dialog.ShowInformation("No File", "Enter a configuration file path first", s.window)
		return
	}

	cfg, err := config.Load(s.configPath)
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to load config: %w", err), s.window)
		return
	}

	s.config = cfg
	s.populate()
}

// saveConfig validates the form and writes it to file
func (s *SettingsTab) saveConfig() {
	if s.configPath == "" {
		dialog.ShowInformation("No File", "Enter a configuration file path first", s.window)
		return
	}

	next, err := s.collect()
	if err != nil {
		dialog.ShowError(err, s.window)
		return
	}

	if err := config.Save(s.configPath, next); err != nil {
		dialog.ShowError(err, s.window)
		return
	}

	s.config = next
	dialog.ShowInformation("Success", "Configuration saved successfully", s.window)
}
