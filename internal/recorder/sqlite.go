package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"QuantSuperior/internal/model"
)

// SQLiteRecorder persists the signal log to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database, along with its
// parent directory, and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the HTTP handlers read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signal_log (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			signal_date TEXT NOT NULL,
			signal      TEXT NOT NULL,
			reason      TEXT,
			channels    TEXT,
			sent_at     INTEGER NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_signal_once
			ON signal_log(symbol, signal_date, signal)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordSignal stores evt. Recording the same symbol, date and signal twice
// keeps the first row.
func (r *SQLiteRecorder) RecordSignal(evt *SignalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sentAt := evt.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	_, err := r.db.Exec(`INSERT OR IGNORE INTO signal_log
		(run_id, symbol, signal_date, signal, reason, channels, sent_at)
		VALUES (?,?,?,?,?,?,?)`,
		evt.RunID, evt.Symbol, model.DateKey(evt.SignalDate), evt.Signal.String(),
		evt.Reason, strings.Join(evt.Channels, ","), sentAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) Notified(symbol string, date time.Time, signal model.Position) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM signal_log
		WHERE symbol = ? AND signal_date = ? AND signal = ?`,
		symbol, model.DateKey(date), signal.String(),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query signal log: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
