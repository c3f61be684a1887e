// Package notify delivers lifecycle run results to operators.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Bibi40k/vmware-template-lifecycle/pkg/promote"
)

// EventType represents the outcome of a run.
type EventType string

const (
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"  // some actions failed
	EventRunAborted   EventType = "run_aborted" // nothing was applied
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Event describes a finished run.
type Event struct {
	Type        EventType          `json:"type"`
	RunID       string             `json:"run_id,omitempty"`
	Source      string             `json:"source"`
	Destination string             `json:"destination,omitempty"`
	Message     string             `json:"message"`
	Severity    string             `json:"severity"`
	Timestamp   time.Time          `json:"timestamp"`
	Report      *promote.RunReport `json:"report,omitempty"`
}

// EventFromReport builds the event for a run that reached the apply stage.
func EventFromReport(report *promote.RunReport) Event {
	ev := Event{
		Type:        EventRunCompleted,
		RunID:       report.RunID,
		Source:      report.Source,
		Destination: report.Destination,
		Message:     report.Summary(),
		Severity:    SeverityInfo,
		Timestamp:   report.FinishedAt,
		Report:      report,
	}
	if !report.OK() {
		ev.Type = EventRunFailed
		ev.Severity = SeverityWarning
	}
	return ev
}

// AbortEvent builds the event for a run that stopped before any action.
func AbortEvent(req promote.Request, err error, at time.Time) Event {
	return Event{
		Type:        EventRunAborted,
		Source:      req.Source,
		Destination: req.Destination,
		Message:     fmt.Sprintf("run aborted: %v", err),
		Severity:    SeverityError,
		Timestamp:   at,
	}
}

// Notifier sends run events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
