package notify

import (
	"context"
	"log/slog"
)

// LogNotifier logs events with slog.
type LogNotifier struct {
	Logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs to logger (slog.Default when nil).
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	level := slog.LevelInfo
	switch event.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}

	attrs := []any{
		"type", event.Type,
		"run_id", event.RunID,
		"source", event.Source,
	}
	if event.Destination != "" {
		attrs = append(attrs, "destination", event.Destination)
	}
	if event.Report != nil {
		for _, f := range event.Report.Failed {
			n.Logger.Log(ctx, slog.LevelWarn, "Action not applied", "action", f.Action.String(), "reason", f.Reason)
		}
	}
	n.Logger.Log(ctx, level, event.Message, attrs...)
	return nil
}
