package ui

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	serviceName    = "serialplotter.service"
	commandTimeout = 15 * time.Second
)

// ControlTab starts and stops the headless acquisition service through
// systemctl
type ControlTab struct {
	serviceName string
	statusLabel *widget.Label
	outputText  *widget.Entry
	buttons     []*widget.Button
}

// NewControlTab creates a new control tab
func NewControlTab() *ControlTab {
	return &ControlTab{
		serviceName: serviceName,
	}
}

// Build constructs the control UI
func (c *ControlTab) Build() fyne.CanvasObject {
	// Status display
	c.statusLabel = widget.NewLabel("Service Status: Unknown")
	c.statusLabel.TextStyle = fyne.TextStyle{Bold: true}

	statusCard := widget.NewCard("Current Status", c.serviceName, c.statusLabel)

	startBtn := c.commandButton("Start Service", "start", widget.SuccessImportance)
	stopBtn := c.commandButton("Stop Service", "stop", widget.DangerImportance)
	restartBtn := c.commandButton("Restart Service", "restart", widget.WarningImportance)
	enableBtn := c.commandButton("Enable Auto-Start", "enable", widget.MediumImportance)
	disableBtn := c.commandButton("Disable Auto-Start", "disable", widget.MediumImportance)

	statusBtn := widget.NewButton("Check Status", func() {
		go c.checkStatus()
	})

	// Output log
	c.outputText = widget.NewMultiLineEntry()
	c.outputText.SetPlaceHolder("Command output will appear here...")
	c.outputText.Wrapping = fyne.TextWrapWord

	outputCard := widget.NewCard("Command Output", "", container.NewScroll(c.outputText))

	content := container.NewBorder(
		container.NewVBox(
			statusCard,
			widget.NewSeparator(),
			widget.NewLabel("Service Control"),
			container.NewGridWithColumns(3, startBtn, stopBtn, restartBtn),
			statusBtn,
			widget.NewSeparator(),
			widget.NewLabel("Auto-Start Configuration"),
			container.NewGridWithColumns(2, enableBtn, disableBtn),
			widget.NewSeparator(),
		),
		nil,
		nil,
		nil,
		outputCard,
	)

	// Initial status check
	go c.checkStatus()

	return content
}

func (c *ControlTab) commandButton(label, action string, importance widget.Importance) *widget.Button {
	btn := widget.NewButton(label, func() {
		c.setBusy(true)
		go func() {
			c.executeCommand(action)
			fyne.Do(func() { c.setBusy(false) })
		}()
	})
	btn.Importance = importance
	c.buttons = append(c.buttons, btn)
	return btn
}

func (c *ControlTab) setBusy(busy bool) {
	for _, btn := range c.buttons {
		if busy {
			btn.Disable()
		} else {
			btn.Enable()
		}
	}
}

// executeCommand runs a systemctl action. It must not run on the UI goroutine.
func (c *ControlTab) executeCommand(action string) {
	c.appendOutput(fmt.Sprintf("Executing: systemctl %s %s\n", action, c.serviceName))

	output, err := systemctl(action, c.serviceName)
	if err != nil {
		c.appendOutput(fmt.Sprintf("Error: %v\n", err))
	}
	c.appendOutput(output + "\n")

	// Update status after command
	c.checkStatus()
}

// checkStatus queries systemctl. It must not run on the UI goroutine.
func (c *ControlTab) checkStatus() {
	output, err := systemctl("status", c.serviceName)
	text, importance := parseServiceStatus(output)

	fyne.Do(func() {
		c.statusLabel.SetText("Service Status: " + text)
		c.statusLabel.Importance = importance
		c.statusLabel.Refresh()
	})

	if err != nil {
		c.appendOutput(fmt.Sprintf("Status check error: %v\n", err))
	}
	c.appendOutput("Status updated\n")
}

// appendOutput appends text to the output display from any goroutine
func (c *ControlTab) appendOutput(text string) {
	fyne.Do(func() {
		c.outputText.SetText(c.outputText.Text + text)
		// Scroll to bottom
		c.outputText.CursorRow = strings.Count(c.outputText.Text, "\n")
	})
}

func systemctl(action, unit string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, "systemctl", action, unit).CombinedOutput()
	return string(output), err
}

// parseServiceStatus maps `systemctl status` output to a display state
func parseServiceStatus(output string) (string, widget.Importance) {
	switch {
	case strings.Contains(output, "Active: active (running)"):
		return "RUNNING", widget.SuccessImportance
	case strings.Contains(output, "Active: inactive"):
		return "STOPPED", widget.MediumImportance
	case strings.Contains(output, "Active: failed"):
		return "FAILED", widget.DangerImportance
	default:
		return "UNKNOWN", widget.WarningImportance
	}
}
