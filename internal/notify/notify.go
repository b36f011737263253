// Package notify holds the contracts the API layer uses to talk to
// its host application: surfacing user-visible messages and asking for
// a redirect to the login view. The SDK only invokes these; embedding
// applications decide how they render.
package notify

import (
	"log/slog"
	"time"
)

type Severity string

const (
	SeverityPositive Severity = "positive"
	SeverityNegative Severity = "negative"
	SeverityWarning  Severity = "warning"
)

// Notification is one user-visible message. Timeout of zero means the
// host's default display duration.
type Notification struct {
	Severity Severity
	Message  string
	Caption  string
	Timeout  time.Duration
}

type Notifier interface {
	Notify(n Notification)
}

// Navigator abstracts the host's routing. CurrentPath reports where
// the user is, RedirectToLogin sends them to the login view with a
// return target.
type Navigator interface {
	CurrentPath() string
	RedirectToLogin(returnTo string)
}

// LogNotifier surfaces notifications through slog. The default for
// headless use; interactive hosts install their own.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l *LogNotifier) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch n.Severity {
	case SeverityNegative:
		logger.Error(n.Message, "caption", n.Caption)
	case SeverityWarning:
		logger.Warn(n.Message, "caption", n.Caption)
	default:
		logger.Info(n.Message, "caption", n.Caption)
	}
}

// NopNavigator is used when no host routing exists (tests, one-shot
// CLI invocations).
type NopNavigator struct{}

func (NopNavigator) CurrentPath() string    { return "" }
func (NopNavigator) RedirectToLogin(string) {}

var (
	_ Notifier  = (*LogNotifier)(nil)
	_ Navigator = NopNavigator{}
)
