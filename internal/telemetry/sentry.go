// internal/telemetry/sentry.go

// Package telemetry wires Sentry error reporting. With an empty DSN every
// function is a no-op.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// InitSentry initializes the Sentry SDK. Call once at process startup.
func InitSentry(dsn, environment, release string) error {
	if dsn == "" {
		logrus.Info("SENTRY_DSN not set, error reporting disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
		Tags: map[string]string{
			"service": "verdict-cms",
		},
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			// Editors are identified by id in tags; never ship emails.
			event.User.Email = ""
			event.User.IPAddress = ""
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	return nil
}

// CaptureError sends err to Sentry with the given tags.
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush waits for buffered events to be sent.
func Flush() {
	sentry.Flush(2 * time.Second)
}
