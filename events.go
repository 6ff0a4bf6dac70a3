package webserial

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// EventKind identifies the kind of event a Session emits.
type EventKind string

const (
	KindStatus       EventKind = "status"
	KindData         EventKind = "data"
	KindNotification EventKind = "notification"
)

// Event is emitted by a Session to its observers.
type Event interface {
	Kind() EventKind
}

// StatusChanged reports a lifecycle transition or a pause toggle.
type StatusChanged struct {
	State        ConnectionState `json:"state"`
	Message      string          `json:"message"`
	Paused       bool            `json:"paused"`
	Port         string          `json:"port,omitempty"`
	ConnectionID string          `json:"connectionId,omitempty"`
	Time         time.Time       `json:"time"`
}

func (StatusChanged) Kind() EventKind { return KindStatus }

// DataUpdated carries the current display buffer after a chunk or a clear.
// Appended is the text this update added, empty for paused chunks.
type DataUpdated struct {
	DisplayText   string `json:"displayText"`
	Appended      string `json:"appended"`
	BytesReceived int64  `json:"bytesReceived"`
}

func (DataUpdated) Kind() EventKind { return KindData }

// Level is the severity of a Notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a user-facing message.
type Notification struct {
	Message string    `json:"message"`
	Level   Level     `json:"level"`
	Time    time.Time `json:"time"`
}

func (Notification) Kind() EventKind { return KindNotification }

// Observer receives events from a Session. OnEvent is called outside the
// session lock and may call back into the session.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) OnEvent(ctx context.Context, event Event) { f(ctx, event) }

// MultiObserver fans out events to multiple observers.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver that forwards events to all
// non-nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &MultiObserver{observers: filtered}
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}

// LogObserver writes status changes and notifications to a zerolog logger.
// Data updates are logged at trace level only.
type LogObserver struct {
	logger zerolog.Logger
}

func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnEvent(_ context.Context, event Event) {
	switch ev := event.(type) {
	case StatusChanged:
		o.logger.Info().
			Str("state", ev.State.String()).
			Bool("paused", ev.Paused).
			Str("port", ev.Port).
			Str("connection_id", ev.ConnectionID).
			Msg(ev.Message)
	case DataUpdated:
		o.logger.Trace().
			Int("appended", len(ev.Appended)).
			Int64("bytes_received", ev.BytesReceived).
			Msg("data updated")
	case Notification:
		lvl := zerolog.InfoLevel
		if ev.Level == LevelError {
			lvl = zerolog.WarnLevel
		}
		o.logger.WithLevel(lvl).Str("notice", string(ev.Level)).Msg(ev.Message)
	}
}
