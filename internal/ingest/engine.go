// Package ingest syncs the append-only chat turn exports into the
// row store. Each export file is JSONL, one chat turn per line:
//
//	{"session_id": "5511...", "created_at": "2024-06-15T12:00:00Z",
//	 "message": {"type": "human", "content": "oi"}}
//
// Files are re-ingested wholesale when their size or mtime
// changes; rows from a previous ingest of the same file are
// replaced, so a growing file never duplicates turns.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"zapview/internal/db"
)

const (
	initialScanBufSize = 64 * 1024       // 64KB
	maxScanTokenSize   = 4 * 1024 * 1024 // 4MB
)

// timestampFormats are tried in order when parsing created_at.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// Stats summarizes one sync run.
type Stats struct {
	FilesScanned  int `json:"files_scanned"`
	FilesIngested int `json:"files_ingested"`
	TurnsIngested int `json:"turns_ingested"`
	LinesSkipped  int `json:"lines_skipped"`
}

// Engine scans the export directory and loads changed files into
// the store.
type Engine struct {
	db  *db.DB
	dir string
	log zerolog.Logger

	syncMu sync.Mutex // serializes sync runs

	mu        sync.RWMutex
	lastSync  time.Time
	lastStats Stats
	known     map[string]db.FileState
}

// NewEngine creates an Engine for dir. Fingerprints of already
// ingested files are preloaded from the database so unchanged
// files are skipped on startup.
func NewEngine(database *db.DB, dir string, log zerolog.Logger) *Engine {
	known, err := database.LoadIngestedFiles()
	if err != nil {
		log.Warn().Err(err).Msg("loading ingest fingerprints")
		known = make(map[string]db.FileState)
	}
	return &Engine{
		db:    database,
		dir:   dir,
		log:   log,
		known: known,
	}
}

// LastSync returns the time of the last completed sync.
func (e *Engine) LastSync() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSync
}

// LastStats returns statistics from the last sync.
func (e *Engine) LastStats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastStats
}

// Sync walks the export directory once and ingests every new or
// changed .jsonl file. Unreadable or malformed files are logged
// and skipped; only a store failure aborts the run.
func (e *Engine) Sync(ctx context.Context) (Stats, error) {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	var stats Stats
	err := filepath.WalkDir(e.dir,
		func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip inaccessible entries
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() || !strings.HasSuffix(path, ".jsonl") {
				return nil
			}
			stats.FilesScanned++
			return e.syncFile(path, &stats)
		})
	if err != nil {
		return stats, fmt.Errorf("syncing %s: %w", e.dir, err)
	}

	e.mu.Lock()
	e.lastSync = time.Now()
	e.lastStats = stats
	e.mu.Unlock()

	e.log.Info().
		Int("scanned", stats.FilesScanned).
		Int("ingested", stats.FilesIngested).
		Int("turns", stats.TurnsIngested).
		Int("skipped_lines", stats.LinesSkipped).
		Msg("ingest sync complete")
	return stats, nil
}

func (e *Engine) syncFile(path string, stats *Stats) error {
	info, err := os.Stat(path)
	if err != nil {
		e.log.Warn().Err(err).Str("file", path).Msg("stat failed")
		return nil
	}

	state := db.FileState{
		Size:  info.Size(),
		Mtime: info.ModTime().Unix(),
	}
	e.mu.RLock()
	prev, seen := e.known[path]
	e.mu.RUnlock()
	if seen && prev == state {
		return nil
	}

	turns, skipped, err := parseFile(path)
	if err != nil {
		e.log.Warn().Err(err).Str("file", path).Msg("parse failed")
		return nil
	}

	if err := e.db.ReplaceFileTurns(
		path, state.Size, state.Mtime, turns,
	); err != nil {
		return fmt.Errorf("storing %s: %w", path, err)
	}

	e.mu.Lock()
	e.known[path] = state
	e.mu.Unlock()

	stats.FilesIngested++
	stats.TurnsIngested += len(turns)
	stats.LinesSkipped += skipped
	return nil
}

// parseFile reads one JSONL export. Lines that are not valid
// JSON or lack a session id or message content are counted and
// skipped. A bad timestamp does not drop the line: the turn is
// kept with a zero CreatedAt and handled downstream.
func parseFile(path string) ([]db.Turn, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var (
		turns   []db.Turn
		skipped int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(
		make([]byte, 0, initialScanBufSize), maxScanTokenSize,
	)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		turn, ok := parseLine(line)
		if !ok {
			skipped++
			continue
		}
		turns = append(turns, turn)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return turns, skipped, nil
}

func parseLine(line string) (db.Turn, bool) {
	if !gjson.Valid(line) {
		return db.Turn{}, false
	}

	sessionID := gjson.Get(line, "session_id").Str
	content := gjson.Get(line, "message.content")
	if sessionID == "" || !content.Exists() {
		return db.Turn{}, false
	}

	return db.Turn{
		SessionID: sessionID,
		Kind:      gjson.Get(line, "message.type").Str,
		Content:   content.Str,
		CreatedAt: parseTimestamp(gjson.Get(line, "created_at").Str),
	}, true
}

// parseTimestamp returns the zero time when s matches none of
// the accepted formats.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
