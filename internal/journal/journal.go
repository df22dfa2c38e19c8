// Package journal keeps a SQLite history of task runs and node plays.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Register the "sqlite" driver
)

// Journal errors.
var (
	ErrRunNotFound = errors.New("run not found")
	ErrInvalidPlay = errors.New("invalid play record")
)

// RunStatus is the final state of a run
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
	RunStopped  RunStatus = "stopped"
	RunFailed   RunStatus = "failed"
)

// Outcome is the result of one macro play
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "macro_failed"
	OutcomeStopped Outcome = "stopped"
	OutcomeError   Outcome = "error"
)

// Run is one task execution
type Run struct {
	ID         string
	Folder     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus
	Rounds     int
	Error      string
	Plays      int
}

// Play is one node macro played during a run
type Play struct {
	ID        string
	RunID     string
	Round     int
	Node      string
	Prev      string
	Score     float64
	StartedAt time.Time
	Duration  time.Duration
	Outcome   Outcome
	Error     string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	folder      TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	status      TEXT NOT NULL,
	rounds      INTEGER NOT NULL DEFAULT 0,
	error       TEXT
);
CREATE TABLE IF NOT EXISTS plays (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	round       INTEGER NOT NULL,
	node        TEXT NOT NULL,
	prev        TEXT,
	score       REAL NOT NULL,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	outcome     TEXT NOT NULL,
	error       TEXT
);
CREATE INDEX IF NOT EXISTS idx_plays_run ON plays(run_id, started_at);
`

// Journal is the run history database
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// StartRun inserts a running run for folder
func (j *Journal) StartRun(ctx context.Context, folder string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Folder:    folder,
		StartedAt: time.Now().UTC(),
		Status:    RunRunning,
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, folder, started_at, status) VALUES (?, ?, ?, ?)
	`, run.ID, run.Folder, formatTime(run.StartedAt), string(run.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// FinishRun closes a run with its final status
func (j *Journal) FinishRun(ctx context.Context, id string, status RunStatus, rounds int, runErr error) error {
	var errText *string
	if runErr != nil {
		s := runErr.Error()
		errText = &s
	}
	res, err := j.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, status = ?, rounds = ?, error = ? WHERE id = ?
	`, formatTime(time.Now().UTC()), string(status), rounds, errText, id)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// RecordPlay inserts one play
func (j *Journal) RecordPlay(ctx context.Context, play *Play) error {
	if play.RunID == "" || play.Node == "" {
		return ErrInvalidPlay
	}
	if play.ID == "" {
		play.ID = uuid.New().String()
	}
	if play.StartedAt.IsZero() {
		play.StartedAt = time.Now().UTC()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO plays (
			id, run_id, round, node, prev, score, started_at, duration_ms, outcome, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		play.ID,
		play.RunID,
		play.Round,
		play.Node,
		nullString(play.Prev),
		play.Score,
		formatTime(play.StartedAt),
		play.Duration.Milliseconds(),
		string(play.Outcome),
		nullString(play.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert play: %w", err)
	}
	return nil
}

// GetRun returns one run with its play count
func (j *Journal) GetRun(ctx context.Context, id string) (*Run, error) {
	row := j.db.QueryRowContext(ctx, runSelect+` WHERE r.id = ? GROUP BY r.id`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// Runs lists the most recent runs first
func (j *Journal) Runs(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, runSelect+` GROUP BY r.id ORDER BY r.started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Plays lists the plays of a run in order
func (j *Journal) Plays(ctx context.Context, runID string) ([]*Play, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, run_id, round, node, prev, score, started_at, duration_ms, outcome, error
		FROM plays WHERE run_id = ? ORDER BY started_at, rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []*Play
	for rows.Next() {
		var (
			p          Play
			prev, perr sql.NullString
			started    string
			durationMS int64
			outcome    string
		)
		if err := rows.Scan(&p.ID, &p.RunID, &p.Round, &p.Node, &prev, &p.Score, &started, &durationMS, &outcome, &perr); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		p.Prev = prev.String
		p.Error = perr.String
		p.Outcome = Outcome(outcome)
		p.Duration = time.Duration(durationMS) * time.Millisecond
		if p.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		plays = append(plays, &p)
	}
	return plays, rows.Err()
}

const runSelect = `
	SELECT r.id, r.folder, r.started_at, r.finished_at, r.status, r.rounds, r.error, COUNT(p.id)
	FROM runs r LEFT JOIN plays p ON p.run_id = r.id`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run              Run
		started, status  string
		finished, errStr sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Folder, &started, &finished, &status, &run.Rounds, &errStr, &run.Plays); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.Status = RunStatus(status)
	run.Error = errStr.String

	var err error
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return nil, err
		}
		run.FinishedAt = &t
	}
	return &run, nil
}

// timeLayout is fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
