package gateway

import (
	"log/slog"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind classifies a user-facing notification.
type Kind string

const (
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notifier receives the user-facing notifications the gateway raises for
// read-path failures. The transport returns typed values; the notifier is a
// thin adapter the UI boundary supplies, so tests and workers can swap in a
// silent one.
type Notifier interface {
	Notify(kind Kind, title, message string)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(Kind, string, string) {}

// LogNotifier renders notifications into the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

var titleCaser = cases.Title(language.English)

func (n LogNotifier) Notify(kind Kind, title, message string) {
	if n.Logger == nil {
		return
	}
	attrs := []any{
		slog.String("title", titleCaser.String(title)),
		slog.String("message", message),
	}
	switch kind {
	case KindError:
		n.Logger.Error("notification", attrs...)
	default:
		n.Logger.Warn("notification", attrs...)
	}
}
