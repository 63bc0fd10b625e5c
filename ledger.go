package fuzzsplit

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrUnknownRun is returned when resuming a run the ledger has never seen.
var ErrUnknownRun = errors.New("run not found in ledger")

// Ledger records runs and their finished partitions in SQLite so an interrupted run can be resumed.
type Ledger struct {
	conn *sql.DB
}

// OpenLedger opens or creates the ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	conn, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite doesn't support multiple writers
	conn.SetMaxOpenConns(1)

	ledger := &Ledger{conn: conn}
	if err := ledger.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	return ledger, nil
}

func (l *Ledger) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			wordlist TEXT NOT NULL,
			lines INTEGER NOT NULL,
			partitions INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS partitions (
			run_id TEXT NOT NULL REFERENCES runs(id),
			idx INTEGER NOT NULL,
			output_file TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			PRIMARY KEY (run_id, idx)
		)`,
	}

	for _, query := range queries {
		if _, err := l.conn.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the recorded partition count of a run and the indexes that finished cleanly.
func (l *Ledger) Load(runID string) (int, map[int]bool, error) {
	var partitions int
	err := l.conn.QueryRow(`SELECT partitions FROM runs WHERE id = ?`, runID).Scan(&partitions)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	if err != nil {
		return 0, nil, err
	}

	rows, err := l.conn.Query(`SELECT idx FROM partitions WHERE run_id = ? AND status = ?`, runID, statusDone)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	done := map[int]bool{}
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return 0, nil, err
		}
		done[idx] = true
	}

	return partitions, done, rows.Err()
}

func (l *Ledger) Name() string {
	return "ledger"
}

// OnStart records the run. Resumed runs are already present and left untouched.
func (l *Ledger) OnStart(run *Run) error {
	_, err := l.conn.Exec(`
		INSERT OR IGNORE INTO runs (id, wordlist, lines, partitions, started_at) VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Wordlist, run.Lines, run.Partitions, time.Now().UTC())
	return err
}

// OnPartition records a finished partition, replacing an earlier failed attempt at the same index.
func (l *Ledger) OnPartition(result *Result) error {
	var errText sql.NullString
	if result.Err != nil {
		errText = sql.NullString{String: result.Err.Error(), Valid: true}
	}

	_, err := l.conn.Exec(`
		INSERT OR REPLACE INTO partitions (run_id, idx, output_file, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, result.RunID, result.Index, result.OutputFile, result.Status(), errText, result.StartedAt.UTC(), result.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record partition %d: %w", result.Index, err)
	}
	return nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.conn.Close()
}
