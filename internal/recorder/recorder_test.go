package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"QuantSuperior/internal/model"
)

func TestSQLiteRecorder_SignalLog(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "signals.db"), zap.NewNop())
	require.NoError(t, err)
	defer r.Close()

	date := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

	ok, err := r.Notified("FTSEMIB.MI", date, model.Long)
	require.NoError(t, err)
	assert.False(t, ok)

	evt := &SignalEvent{
		RunID:      "run-1",
		Symbol:     "FTSEMIB.MI",
		SignalDate: date,
		Signal:     model.Long,
		Reason:     "top3 pattern",
		Channels:   []string{"email", "telegram"},
	}
	require.NoError(t, r.RecordSignal(evt))
	require.NoError(t, r.RecordSignal(evt), "duplicates are ignored")

	ok, err = r.Notified("FTSEMIB.MI", date, model.Long)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Notified("FTSEMIB.MI", date, model.Short)
	require.NoError(t, err)
	assert.False(t, ok, "a different signal on the same date is new")

	ok, err = r.Notified("FTSEMIB.MI", date.AddDate(0, 0, 1), model.Long)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteRecorder_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.db")
	date := time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)

	r, err := NewSQLiteRecorder(path, nil)
	require.NoError(t, err)
	require.NoError(t, r.RecordSignal(&SignalEvent{RunID: "a", Symbol: "X", SignalDate: date, Signal: model.Short}))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path, nil)
	require.NoError(t, err)
	defer r.Close()
	ok, err := r.Notified("X", date, model.Short)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	require.NoError(t, r.RecordSignal(&SignalEvent{}))
	ok, err := r.Notified("X", time.Now(), model.Long)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, r.Close())
}

func TestSQLiteRecorder_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", "quant_superior.db")
	r, err := NewSQLiteRecorder(path, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.FileExists(t, path)
	ok, err := r.Notified("FTSEMIB.MI", time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), model.Long)
	require.NoError(t, err)
	assert.False(t, ok)
}
