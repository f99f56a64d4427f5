// Package recorder keeps a log of the signal alerts already delivered so a
// signal is announced once per date.
package recorder

import (
	"time"

	"QuantSuperior/internal/model"
)

// SignalEvent is one delivered next-day signal.
type SignalEvent struct {
	RunID      string
	Symbol     string
	SignalDate time.Time
	Signal     model.Position
	Reason     string
	Channels   []string
	SentAt     time.Time
}

// Recorder persists delivered signals.
type Recorder interface {
	RecordSignal(evt *SignalEvent) error
	// Notified reports whether signal was already delivered for symbol on date.
	Notified(symbol string, date time.Time, signal model.Position) (bool, error)
	Close() error
}
