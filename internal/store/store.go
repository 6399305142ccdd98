// Package store handles SQLite persistence of the attempt archive.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/tuisplit/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for archived attempts.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY,
			run_key TEXT NOT NULL,
			title TEXT NOT NULL,
			category TEXT NOT NULL,
			attempt_index INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			total_ms INTEGER,
			completed INTEGER NOT NULL,
			personal_best INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempt_segments (
			attempt_id INTEGER NOT NULL,
			split_index INTEGER NOT NULL,
			name TEXT NOT NULL,
			split_ms INTEGER,
			segment_ms INTEGER,
			PRIMARY KEY (attempt_id, split_index)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_run_ended ON attempts(run_key, ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_attempt_segments_split ON attempt_segments(split_index);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAttempt stores an ended attempt and its segments.
func (s *Store) InsertAttempt(ctx context.Context, rec model.AttemptRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO attempts (run_key, title, category, attempt_index, started_at, ended_at, total_ms, completed, personal_best)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunKey,
		rec.Title,
		rec.Category,
		rec.AttemptIndex,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.EndedAt.UTC().Format(time.RFC3339Nano),
		nullMillis(rec.Total),
		rec.Completed,
		rec.PersonalBest,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(rec.Segments) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO attempt_segments (attempt_id, split_index, name, split_ms, segment_ms)
			 VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, seg := range rec.Segments {
			if _, err := stmt.ExecContext(ctx, id, seg.SplitIndex, seg.Name, nullMillis(seg.SplitTime), nullMillis(seg.Segment)); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListAttempts returns archived attempts in chronological order. Filter.Last
// keeps only the most recent attempts.
func (s *Store) ListAttempts(ctx context.Context, filter model.AttemptFilter) ([]model.AttemptSummary, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.RunKey != "" {
		clauses = append(clauses, "run_key = ?")
		args = append(args, filter.RunKey)
	}
	if filter.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	if filter.CompletedOnly {
		clauses = append(clauses, "completed = 1")
	}
	query := fmt.Sprintf(`SELECT id, run_key, attempt_index, ended_at, total_ms, completed, personal_best
		FROM attempts
		WHERE %s
		ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var attempts []model.AttemptSummary
	for rows.Next() {
		var sum model.AttemptSummary
		var endedAt string
		var total sql.NullInt64
		if err := rows.Scan(&sum.ID, &sum.RunKey, &sum.AttemptIndex, &endedAt, &total, &sum.Completed, &sum.PersonalBest); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		sum.EndedAt = parsed
		if total.Valid {
			ms := total.Int64
			sum.TotalMs = &ms
		}
		attempts = append(attempts, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if filter.Last > 0 && len(attempts) > filter.Last {
		attempts = attempts[len(attempts)-filter.Last:]
	}
	return attempts, nil
}

// SegmentStats aggregates recorded segments per split for a run.
func (s *Store) SegmentStats(ctx context.Context, runKey string) ([]model.SegmentAggregate, error) {
	query := `SELECT seg.split_index, MAX(seg.name), COUNT(seg.segment_ms),
		COALESCE(MIN(seg.segment_ms), 0), COALESCE(SUM(seg.segment_ms), 0)
	FROM attempt_segments seg
	JOIN attempts a ON a.id = seg.attempt_id
	WHERE (? = '' OR a.run_key = ?) AND seg.segment_ms IS NOT NULL
	GROUP BY seg.split_index
	ORDER BY seg.split_index ASC`
	return s.querySegmentAggregates(ctx, query, runKey, runKey)
}

// SegmentStatsForAttempts aggregates recorded segments per split across the
// given attempts.
func (s *Store) SegmentStatsForAttempts(ctx context.Context, attemptIDs []int64) ([]model.SegmentAggregate, error) {
	if len(attemptIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(attemptIDs))
	args := make([]any, len(attemptIDs))
	for i, id := range attemptIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT split_index, MAX(name), COUNT(segment_ms),
		COALESCE(MIN(segment_ms), 0), COALESCE(SUM(segment_ms), 0)
		FROM attempt_segments
		WHERE attempt_id IN (%s) AND segment_ms IS NOT NULL
		GROUP BY split_index
		ORDER BY split_index ASC`, strings.Join(placeholders, ","))
	return s.querySegmentAggregates(ctx, query, args...)
}

func (s *Store) querySegmentAggregates(ctx context.Context, query string, args ...any) ([]model.SegmentAggregate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.SegmentAggregate
	for rows.Next() {
		var agg model.SegmentAggregate
		if err := rows.Scan(&agg.SplitIndex, &agg.Name, &agg.Count, &agg.BestMs, &agg.SumMs); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListRuns returns every run in the archive, most recently played first.
func (s *Store) ListRuns(ctx context.Context) ([]model.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_key,
		(SELECT title FROM attempts t WHERE t.run_key = a.run_key ORDER BY ended_at DESC, id DESC LIMIT 1),
		(SELECT category FROM attempts t WHERE t.run_key = a.run_key ORDER BY ended_at DESC, id DESC LIMIT 1),
		COUNT(*), SUM(completed), MAX(ended_at)
	FROM attempts a
	GROUP BY run_key
	ORDER BY MAX(ended_at) DESC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunSummary
	for rows.Next() {
		var run model.RunSummary
		var lastEnded string
		if err := rows.Scan(&run.RunKey, &run.Title, &run.Category, &run.Attempts, &run.Completed, &lastEnded); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, lastEnded)
		if err != nil {
			return nil, err
		}
		run.LastEnded = parsed
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func nullMillis(d model.Duration) sql.NullInt64 {
	v, ok := d.Get()
	if !ok {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v.Milliseconds(), Valid: true}
}
