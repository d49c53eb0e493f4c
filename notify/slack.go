package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"serialplotter/acquisition"
	"serialplotter/config"
)

const footer = "SerialPlotter"

// Failure describes a producer that died. Attempt and RetryIn describe the
// restart the service has scheduled; both are zero when auto restart is off.
type Failure struct {
	Status  acquisition.Status
	Attempt int
	RetryIn time.Duration
}

// Recovery describes samples flowing again after a failure streak
type Recovery struct {
	Status   acquisition.Status
	Attempts int
	Downtime time.Duration
}

// Summary is reported when the service shuts down
type Summary struct {
	Target   acquisition.Target
	Samples  int64
	Restarts int64
	Uptime   time.Duration
}

// SlackNotifier posts acquisition events to a Slack incoming webhook
type SlackNotifier struct {
	config     *config.SlackConfig
	instanceID string
	logger     *slog.Logger
	client     *http.Client
	now        func() time.Time
}

// message is the webhook payload
type message struct {
	Attachments []attachment `json:"attachments"`
}

type attachment struct {
	Color     string  `json:"color"`
	Title     string  `json:"title"`
	Fields    []field `json:"fields"`
	Footer    string  `json:"footer"`
	Timestamp int64   `json:"ts"`
}

type field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackNotifier creates a notifier. It stays silent until a webhook URL
// is configured.
func NewSlackNotifier(cfg *config.SlackConfig, instanceID string, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		config:     cfg,
		instanceID: instanceID,
		logger:     logger,
		client:     &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// IsEnabled returns true if Slack notifications are configured
func (s *SlackNotifier) IsEnabled() bool {
	return s.config.WebhookURL != ""
}

// NotifyStartup announces the target the service is about to acquire from
func (s *SlackNotifier) NotifyStartup(target acquisition.Target, autoRestart bool) error {
	if !s.config.NotifyStartup {
		return nil
	}
	restart := "off"
	if autoRestart {
		restart = "on"
	}
	return s.post("good", "Acquisition service started",
		short("Target", target.Label()),
		short("Auto restart", restart),
	)
}

// NotifyShutdown reports what the service collected over its lifetime
func (s *SlackNotifier) NotifyShutdown(summary Summary) error {
	if !s.config.NotifyShutdown {
		return nil
	}
	return s.post("warning", "Acquisition service stopped",
		short("Target", summary.Target.Label()),
		short("Uptime", summary.Uptime.Round(time.Second).String()),
		short("Samples", strconv.FormatInt(summary.Samples, 10)),
		short("Restarts", strconv.FormatInt(summary.Restarts, 10)),
	)
}

// NotifyFailure reports a producer that died and what happens next
func (s *SlackNotifier) NotifyFailure(f Failure) error {
	if !s.config.NotifyErrors {
		return nil
	}
	next := "none, auto restart is off"
	if f.Attempt > 0 {
		next = fmt.Sprintf("#%d in %s", f.Attempt, f.RetryIn)
	}
	return s.post("danger", "Acquisition failed",
		short("Target", f.Status.Target.Label()),
		short("Run", f.Status.RunID),
		short("Samples before failure", strconv.FormatInt(f.Status.SamplesReceived, 10)),
		short("Next restart", next),
		field{Title: "Error", Value: f.Status.LastError},
	)
}

// NotifyRecovered reports that samples arrive again after a failure
func (s *SlackNotifier) NotifyRecovered(r Recovery) error {
	if !s.config.NotifyErrors {
		return nil
	}
	return s.post("good", "Acquisition recovered",
		short("Target", r.Status.Target.Label()),
		short("Run", r.Status.RunID),
		short("Restart attempts", strconv.Itoa(r.Attempts)),
		short("Downtime", r.Downtime.Round(time.Second).String()),
	)
}

func short(title, value string) field {
	return field{Title: title, Value: value, Short: true}
}

// post prepends the instance to fields and sends one attachment
func (s *SlackNotifier) post(color, title string, fields ...field) error {
	if !s.IsEnabled() {
		return nil
	}

	msg := message{Attachments: []attachment{{
		Color:     color,
		Title:     title,
		Fields:    append([]field{short("Instance", s.instanceID)}, fields...),
		Footer:    footer,
		Timestamp: s.now().Unix(),
	}}}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode slack message: %w", err)
	}

	resp, err := s.client.Post(s.config.WebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	s.logger.Debug("Slack notification sent", "title", title)
	return nil
}
