package recorder

import (
	"time"

	"QuantSuperior/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
// It never reports a signal as delivered.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSignal(_ *SignalEvent) error { return nil }
func (n *NoopRecorder) Notified(_ string, _ time.Time, _ model.Position) (bool, error) {
	return false, nil
}
func (n *NoopRecorder) Close() error { return nil }
