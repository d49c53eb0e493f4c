package ui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"serialplotter/monitoring"
)

// DashboardTab shows the state of a headless acquisition service through its
// monitoring API
type DashboardTab struct {
	apiURL          string
	client          *http.Client
	refreshInterval time.Duration

	statusLabel   *widget.Label
	instanceLabel *widget.Label
	versionLabel  *widget.Label
	uptimeLabel   *widget.Label
	deviceValue   *widget.Label
	stateValue    *widget.Label
	samplesValue  *widget.Label
	windowValue   *widget.Label
	lastValue     *widget.Label
	exitsValue    *widget.Label
	errorValue    *widget.Label

	autoRefresh bool
	stopRefresh chan struct{}
}

// NewDashboardTab creates a dashboard for the service listening on port
func NewDashboardTab(port int) *DashboardTab {
	return &DashboardTab{
		apiURL:          fmt.Sprintf("http://localhost:%d", port),
		client:          &http.Client{Timeout: 2 * time.Second},
		refreshInterval: 2 * time.Second,
		stopRefresh:     make(chan struct{}),
	}
}

// Build constructs the dashboard UI
func (d *DashboardTab) Build() fyne.CanvasObject {
	// Status section
	d.statusLabel = widget.NewLabel("Status: Unknown")
	d.instanceLabel = widget.NewLabel("Instance: -")
	d.versionLabel = widget.NewLabel("Version: -")
	d.uptimeLabel = widget.NewLabel("Uptime: -")

	statusCard := widget.NewCard("Service Status", d.apiURL, container.NewVBox(
		d.statusLabel,
		d.instanceLabel,
		d.versionLabel,
		d.uptimeLabel,
	))

	// Session section
	d.deviceValue = widget.NewLabel("-")
	d.stateValue = widget.NewLabel("-")
	d.samplesValue = widget.NewLabel("-")
	d.windowValue = widget.NewLabel("-")
	d.lastValue = widget.NewLabel("-")
	d.exitsValue = widget.NewLabel("-")
	d.errorValue = widget.NewLabel("-")
	d.errorValue.Wrapping = fyne.TextWrapWord

	sessionForm := widget.NewForm(
		widget.NewFormItem("Device", d.deviceValue),
		widget.NewFormItem("State", d.stateValue),
		widget.NewFormItem("Samples", d.samplesValue),
		widget.NewFormItem("Window", d.windowValue),
		widget.NewFormItem("Last Value", d.lastValue),
		widget.NewFormItem("Producer Exits", d.exitsValue),
		widget.NewFormItem("Last Error", d.errorValue),
	)
	sessionCard := widget.NewCard("Acquisition", "", sessionForm)

	refreshBtn := widget.NewButton("Refresh Now", func() {
		go d.refresh()
	})

	autoRefreshCheck := widget.NewCheck("Auto-refresh (2s)", func(checked bool) {
		if checked == d.autoRefresh {
			return
		}
		d.autoRefresh = checked
		if checked {
			d.stopRefresh = make(chan struct{})
			go d.startAutoRefresh(d.stopRefresh)
		} else {
			close(d.stopRefresh)
		}
	})
	autoRefreshCheck.SetChecked(true)

	return container.NewVScroll(container.NewVBox(
		statusCard,
		sessionCard,
		container.NewHBox(refreshBtn, autoRefreshCheck),
	))
}

// Close stops auto-refresh
func (d *DashboardTab) Close() {
	if d.autoRefresh {
		d.autoRefresh = false
		close(d.stopRefresh)
	}
}

// refresh fetches health off the UI goroutine and applies it on it
func (d *DashboardTab) refresh() {
	health, err := fetchHealth(d.client, d.apiURL)
	fyne.Do(func() {
		if err != nil {
			d.statusLabel.SetText("Status: Error - " + err.Error())
			d.statusLabel.Importance = widget.DangerImportance
			d.statusLabel.Refresh()
			return
		}
		d.apply(health)
	})
}

func (d *DashboardTab) apply(health monitoring.HealthResponse) {
	d.statusLabel.SetText(fmt.Sprintf("Status: %s", health.Status))
	switch health.Status {
	case "healthy":
		d.statusLabel.Importance = widget.SuccessImportance
	case "degraded":
		d.statusLabel.Importance = widget.DangerImportance
	default:
		d.statusLabel.Importance = widget.MediumImportance
	}
	d.statusLabel.Refresh()
	d.instanceLabel.SetText(fmt.Sprintf("Instance: %s", health.InstanceID))
	d.versionLabel.SetText(fmt.Sprintf("Version: %s", health.Version))
	d.uptimeLabel.SetText(fmt.Sprintf("Uptime: %s", formatUptime(health.UptimeSec)))

	s := health.Session
	d.deviceValue.SetText(s.Target.String())
	d.stateValue.SetText(string(s.State))
	d.samplesValue.SetText(fmt.Sprintf("%d", s.SamplesReceived))
	d.windowValue.SetText(fmt.Sprintf("%d samples over %gs", s.WindowSize, s.WindowLength))
	if s.LastSampleTime.IsZero() {
		d.lastValue.SetText("-")
	} else {
		d.lastValue.SetText(fmt.Sprintf("%g at %s", s.LastValue, s.LastSampleTime.Format("15:04:05")))
	}
	d.exitsValue.SetText(fmt.Sprintf("%d", s.ProducerExits))
	if s.LastError == "" {
		d.errorValue.SetText("-")
	} else {
		d.errorValue.SetText(s.LastError)
	}
}

// startAutoRefresh polls until stop is closed
func (d *DashboardTab) startAutoRefresh(stop <-chan struct{}) {
	ticker := time.NewTicker(d.refreshInterval)
	defer ticker.Stop()

	// Initial fetch
	d.refresh()

	for {
		select {
		case <-ticker.C:
			d.refresh()
		case <-stop:
			return
		}
	}
}

// fetchHealth retrieves health data from the monitoring API. A degraded
// service answers 503 with a normal body.
func fetchHealth(client *http.Client, apiURL string) (monitoring.HealthResponse, error) {
	var health monitoring.HealthResponse

	resp, err := client.Get(apiURL + "/health")
	if err != nil {
		return health, fmt.Errorf("cannot connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return health, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return health, fmt.Errorf("invalid response: %w", err)
	}
	return health, nil
}

// formatUptime formats uptime seconds into a readable string
func formatUptime(seconds int64) string {
	duration := time.Duration(seconds) * time.Second
	hours := int(duration.Hours())
	minutes := int(duration.Minutes()) % 60
	secs := int(duration.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, secs)
	}
	return fmt.Sprintf("%ds", secs)
}
