package ui

import (
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"

	"serialplotter/acquisition"
	"serialplotter/config"
)

// MainUI represents the main user interface
type MainUI struct {
	window    fyne.Window
	plotter   *PlotterTab
	dashboard *DashboardTab
	control   *ControlTab
	settings  *SettingsTab
}

// NewMainUI creates the UI around a session owned by the window
func NewMainUI(window fyne.Window, session *acquisition.Session, cfg *config.Config, configPath string, logger *slog.Logger) *MainUI {
	return &MainUI{
		window:    window,
		plotter:   NewPlotterTab(session, cfg, logger),
		dashboard: NewDashboardTab(cfg.Monitoring.Port),
		control:   NewControlTab(),
		settings:  NewSettingsTab(window, cfg, configPath),
	}
}

// Build constructs the UI layout
func (m *MainUI) Build() fyne.CanvasObject {
	tabs := container.NewAppTabs(
		container.NewTabItem("Plotter", m.plotter.Build()),
		container.NewTabItem("Service", container.NewVSplit(m.dashboard.Build(), m.control.Build())),
		container.NewTabItem("Settings", m.settings.Build()),
	)

	return tabs
}

// Close releases the serial connection and background pollers
func (m *MainUI) Close() {
	m.plotter.Close()
	m.dashboard.Close()
}
