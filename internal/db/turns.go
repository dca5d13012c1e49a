package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"zapview/internal/timeutil"
)

// Turn kinds as recorded by the bot pipeline. Anything other than
// KindHuman is treated as an assistant turn downstream.
const (
	KindHuman = "human"
	KindAI    = "ai"
)

// Turn is one row of the append-only chat log. Immutable once
// read; CreatedAt is the zero time when the stored timestamp is
// missing or unparsable.
type Turn struct {
	ID        int64
	SessionID string
	Kind      string
	Content   string
	CreatedAt time.Time
}

// TurnFilter selects rows for QueryTurns. When SessionID is set
// the time range is ignored and the whole session is returned,
// matching the conversation-detail query of the dashboard.
type TurnFilter struct {
	SessionID string
	From      time.Time
	To        time.Time
}

const turnBaseCols = `id, session_id, kind, content, created_at`

func scanTurnRow(rs rowScanner) (Turn, error) {
	var (
		t  Turn
		ts sql.NullString
	)
	err := rs.Scan(&t.ID, &t.SessionID, &t.Kind, &t.Content, &ts)
	if err != nil {
		return t, err
	}
	if ts.Valid {
		// An unparsable timestamp leaves CreatedAt zero; the
		// row still reaches the caller, which counts it as
		// malformed instead of failing the batch.
		parsed, err := time.Parse(time.RFC3339, ts.String)
		if err == nil {
			t.CreatedAt = parsed
		}
	}
	return t, nil
}

// QueryTurns returns chat log rows matching f. Range queries come
// back newest first, single-session queries oldest first; callers
// that need strict chronological order must re-sort, since stored
// timestamps are compared as text. Rows with NULL created_at are
// excluded.
func (db *DB) QueryTurns(ctx context.Context, f TurnFilter) ([]Turn, error) {
	var (
		query string
		args  []any
	)
	if f.SessionID != "" {
		query = "SELECT " + turnBaseCols + ` FROM turns
			WHERE session_id = ? AND created_at IS NOT NULL
			ORDER BY created_at ASC, id ASC`
		args = []any{f.SessionID}
	} else {
		query = "SELECT " + turnBaseCols + ` FROM turns
			WHERE created_at IS NOT NULL
			AND created_at >= ? AND created_at <= ?
			ORDER BY created_at DESC, id DESC`
		args = []any{timeutil.Format(f.From), timeutil.Format(f.To)}
	}

	rows, err := db.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		t, err := scanTurnRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// InsertTurn appends one row to the chat log and returns its ID.
// A zero CreatedAt is stored as NULL.
func (db *DB) InsertTurn(t Turn) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.writer.Exec(`
		INSERT INTO turns (session_id, kind, content, created_at)
		VALUES (?, ?, ?, ?)`,
		t.SessionID, t.Kind, t.Content, timeutil.Ptr(t.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting turn: %w", err)
	}
	return res.LastInsertId()
}

// FileState is the recorded fingerprint of an ingested file.
type FileState struct {
	Size  int64
	Mtime int64
}

// LoadIngestedFiles returns the fingerprint of every file already
// ingested, keyed by path. Used to skip unchanged files on sync.
func (db *DB) LoadIngestedFiles() (map[string]FileState, error) {
	rows, err := db.reader.Query(
		"SELECT path, file_size, file_mtime FROM ingest_files",
	)
	if err != nil {
		return nil, fmt.Errorf("querying ingest files: %w", err)
	}
	defer rows.Close()

	out := make(map[string]FileState)
	for rows.Next() {
		var (
			path string
			fs   FileState
		)
		if err := rows.Scan(&path, &fs.Size, &fs.Mtime); err != nil {
			return nil, fmt.Errorf("scanning ingest file: %w", err)
		}
		out[path] = fs
	}
	return out, rows.Err()
}

// ReplaceFileTurns atomically replaces all rows previously
// ingested from path with turns and records the file fingerprint.
// Re-ingesting a grown append-only file therefore never
// duplicates rows.
func (db *DB) ReplaceFileTurns(
	path string, size, mtime int64, turns []Turn,
) error {
	return db.Update(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"DELETE FROM turns WHERE source_file = ?", path,
		); err != nil {
			return fmt.Errorf("deleting stale turns: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO turns
				(session_id, kind, content, created_at, source_file)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range turns {
			if _, err := stmt.Exec(
				t.SessionID, t.Kind, t.Content,
				timeutil.Ptr(t.CreatedAt), path,
			); err != nil {
				return fmt.Errorf("inserting turn: %w", err)
			}
		}

		_, err = tx.Exec(`
			INSERT INTO ingest_files (path, file_size, file_mtime)
			VALUES (?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				file_size = excluded.file_size,
				file_mtime = excluded.file_mtime`,
			path, size, mtime,
		)
		if err != nil {
			return fmt.Errorf("recording ingest file: %w", err)
		}
		return nil
	})
}
