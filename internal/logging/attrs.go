package logging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Group nests attrs under key; the console handler flattens it to key.attr.
func Group(key string, attrs ...Attr) Attr {
	return slog.Attr{Key: key, Value: slog.GroupValue(attrs...)}
}

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Event tags a line with its event type.
func Event(eventType string) Attr { return slog.String(FieldEventType, eventType) }

// Key renders a grid key in its "v1,v2" form.
func Key(key fmt.Stringer) Attr { return slog.String(FieldKey, key.String()) }

// NewComponentLogger returns logger tagged with component. A nil logger
// yields one that discards everything.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. Fields already present in attrs win over the defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs,
		Event(eventType),
		String(FieldErrorHint, "set logging.level = \"debug\" and retry for details"),
		String(FieldImpact, "the operation continued"),
	)
	logger.LogAttrs(context.Background(), slog.LevelWarn, msg, attrs...)
}

func withDefaults(attrs []Attr, defaults ...Attr) []Attr {
	for _, d := range defaults {
		if !slices.ContainsFunc(attrs, func(a Attr) bool { return a.Key == d.Key }) {
			attrs = append(attrs, d)
		}
	}
	return attrs
}
