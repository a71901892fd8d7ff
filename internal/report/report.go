// Package report is the channel for upstream data-quality defects. Defects
// describe problems in the source data worth telling a human about; none of
// them stop a harvest run.
package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

// Severity classifies how urgently a defect needs attention.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Defect is one reportable upstream data problem.
type Defect struct {
	ID       string
	Severity Severity
	Message  string
	Tags     map[string]string
}

// New constructs a defect with a fresh identifier.
func New(severity Severity, message string, tags map[string]string) Defect {
	return Defect{
		ID:       uuid.NewString(),
		Severity: severity,
		Message:  message,
		Tags:     tags,
	}
}

// Reporter delivers defects to an error-tracking channel.
type Reporter interface {
	Report(ctx context.Context, d Defect)
}

// LogReporter writes defects to a structured logger. It is the fallback when
// no error-tracking DSN is configured.
type LogReporter struct {
	Log *slog.Logger
}

// NewLogReporter constructs a LogReporter, defaulting to the global logger.
func NewLogReporter(log *slog.Logger) *LogReporter {
	if log == nil {
		log = slog.Default()
	}
	return &LogReporter{Log: log}
}

// Report logs the defect at a level matching its severity.
func (r *LogReporter) Report(ctx context.Context, d Defect) {
	level := slog.LevelWarn
	if d.Severity == SeverityError || d.Severity == SeverityCritical {
		level = slog.LevelError
	}
	attrs := []any{"defect_id", d.ID, "severity", string(d.Severity)}
	for k, v := range d.Tags {
		attrs = append(attrs, k, v)
	}
	r.Log.Log(ctx, level, d.Message, attrs...)
}

// SentryReporter forwards defects to Sentry and mirrors them to a logger.
type SentryReporter struct {
	log *slog.Logger
}

// NewSentryReporter initialises the Sentry SDK with the given DSN.
func NewSentryReporter(dsn string, log *slog.Logger) (*SentryReporter, error) {
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &SentryReporter{log: log}, nil
}

// Report captures the defect as a Sentry message with its tags attached.
func (r *SentryReporter) Report(ctx context.Context, d Defect) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentryLevel(d.Severity))
		scope.SetTag("defect_id", d.ID)
		for k, v := range d.Tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureMessage(d.Message)
	})
	(&LogReporter{Log: r.log}).Report(ctx, d)
}

// Close flushes buffered events before shutdown.
func (r *SentryReporter) Close() {
	sentry.Flush(2 * time.Second)
}

func sentryLevel(s Severity) sentry.Level {
	switch s {
	case SeverityCritical:
		return sentry.LevelFatal
	case SeverityError:
		return sentry.LevelError
	default:
		return sentry.LevelWarning
	}
}
