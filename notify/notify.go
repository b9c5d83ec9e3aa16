// Package notify carries user-facing toasts. Sinks never block and never fail the caller.
package notify

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

type Sink interface {
	Notify(n Notification)
}

type localeKey struct{}

func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, normalizeLocale(locale))
}

// LocaleFrom returns the locale stored on ctx, or def.
func LocaleFrom(ctx context.Context, def string) string {
	if l, ok := ctx.Value(localeKey{}).(string); ok && l != "" {
		return l
	}
	return def
}

func normalizeLocale(l string) string {
	l = strings.ToLower(strings.TrimSpace(l))
	if i := strings.IndexAny(l, ",;-_"); i >= 0 {
		l = l[:i]
	}
	return l
}

type Fanout []Sink

func (f Fanout) Notify(n Notification) {
	for _, s := range f {
		if s != nil {
			s.Notify(n)
		}
	}
}

type LogSink struct {
	Log logrus.FieldLogger
}

func (s LogSink) Notify(n Notification) {
	entry := s.Log.WithFields(logrus.Fields{"title": n.Title, "severity": n.Severity})
	switch n.Severity {
	case SeverityError:
		entry.Error(n.Description)
	case SeverityWarning:
		entry.Warn(n.Description)
	default:
		entry.Info(n.Description)
	}
}

type Discard struct{}

func (Discard) Notify(Notification) {}
