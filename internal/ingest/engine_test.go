package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"zapview/internal/db"
	"zapview/internal/logger"
)

func testEngine(t *testing.T) (*Engine, *db.DB, string) {
	t.Helper()
	tmp := t.TempDir()

	d, err := db.Open(filepath.Join(tmp, "zapview.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	exports := filepath.Join(tmp, "exports")
	if err := os.MkdirAll(exports, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	return NewEngine(d, exports, logger.Discard()), d, exports
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const sampleJSONL = `{"session_id":"5511988887777","created_at":"2024-06-15T12:00:00Z","message":{"type":"human","content":"oi"}}
{"session_id":"5511988887777","created_at":"2024-06-15T12:00:05Z","message":{"type":"ai","content":"ola!"}}
`

func TestSync_IngestsTurns(t *testing.T) {
	e, d, exports := testEngine(t)
	writeFile(t, exports, "day1.jsonl", sampleJSONL)

	stats, err := e.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.FilesIngested != 1 || stats.TurnsIngested != 2 {
		t.Errorf("stats = %+v, want 1 file, 2 turns", stats)
	}

	turns, err := d.QueryTurns(context.Background(), db.TurnFilter{
		SessionID: "5511988887777",
	})
	if err != nil {
		t.Fatalf("QueryTurns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Kind != db.KindHuman || turns[0].Content != "oi" {
		t.Errorf("first turn = %+v", turns[0])
	}
	want := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	if !turns[0].CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", turns[0].CreatedAt, want)
	}
}

func TestSync_SkipsUnchangedFiles(t *testing.T) {
	e, _, exports := testEngine(t)
	writeFile(t, exports, "day1.jsonl", sampleJSONL)

	if _, err := e.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	stats, err := e.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync (second): %v", err)
	}
	if stats.FilesIngested != 0 {
		t.Errorf("second sync ingested %d files, want 0", stats.FilesIngested)
	}
	if stats.FilesScanned != 1 {
		t.Errorf("second sync scanned %d files, want 1", stats.FilesScanned)
	}
}

func TestSync_GrownFileReplacedWithoutDuplicates(t *testing.T) {
	e, d, exports := testEngine(t)
	path := writeFile(t, exports, "day1.jsonl", sampleJSONL)

	if _, err := e.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	grown := sampleJSONL +
		`{"session_id":"5511988887777","created_at":"2024-06-15T12:01:00Z","message":{"type":"human","content":"mais uma"}}` + "\n"
	if err := os.WriteFile(path, []byte(grown), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := e.Sync(context.Background()); err != nil {
		t.Fatalf("Sync (after growth): %v", err)
	}

	turns, err := d.QueryTurns(context.Background(), db.TurnFilter{
		SessionID: "5511988887777",
	})
	if err != nil {
		t.Fatalf("QueryTurns: %v", err)
	}
	if len(turns) != 3 {
		t.Errorf("got %d turns after re-ingest, want 3", len(turns))
	}
}

func TestSync_MalformedLinesCounted(t *testing.T) {
	e, d, exports := testEngine(t)
	content := `not json at all
{"session_id":"","created_at":"2024-06-15T12:00:00Z","message":{"type":"human","content":"no session"}}
{"session_id":"a","created_at":"2024-06-15T12:00:00Z"}
{"session_id":"a","created_at":"garbage","message":{"type":"human","content":"bad ts kept"}}
{"session_id":"a","created_at":"2024-06-15T12:00:00Z","message":{"type":"human","content":"good"}}
`
	writeFile(t, exports, "messy.jsonl", content)

	stats, err := e.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.LinesSkipped != 3 {
		t.Errorf("skipped = %d, want 3", stats.LinesSkipped)
	}
	// The bad-timestamp line is kept (content is not dropped);
	// its NULL created_at keeps it out of query results.
	if stats.TurnsIngested != 2 {
		t.Errorf("ingested = %d, want 2", stats.TurnsIngested)
	}

	turns, err := d.QueryTurns(context.Background(), db.TurnFilter{SessionID: "a"})
	if err != nil {
		t.Fatalf("QueryTurns: %v", err)
	}
	if len(turns) != 1 || turns[0].Content != "good" {
		t.Errorf("queryable turns = %+v, want only the good row", turns)
	}
}

func TestSync_IgnoresNonJSONLFiles(t *testing.T) {
	e, _, exports := testEngine(t)
	writeFile(t, exports, "notes.txt", "not an export")
	writeFile(t, exports, "day1.jsonl", sampleJSONL)

	stats, err := e.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.FilesScanned != 1 {
		t.Errorf("scanned = %d, want 1 (.txt ignored)", stats.FilesScanned)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		wantOK bool
		want   db.Turn
	}{
		{
			name:   "valid human turn",
			line:   `{"session_id":"s","created_at":"2024-06-15T12:00:00Z","message":{"type":"human","content":"oi"}}`,
			wantOK: true,
			want: db.Turn{
				SessionID: "s", Kind: "human", Content: "oi",
				CreatedAt: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
			},
		},
		{
			name:   "space-separated timestamp",
			line:   `{"session_id":"s","created_at":"2024-06-15 12:00:00","message":{"type":"ai","content":"x"}}`,
			wantOK: true,
			want: db.Turn{
				SessionID: "s", Kind: "ai", Content: "x",
				CreatedAt: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
			},
		},
		{
			name:   "missing timestamp keeps turn",
			line:   `{"session_id":"s","message":{"type":"human","content":"oi"}}`,
			wantOK: true,
			want:   db.Turn{SessionID: "s", Kind: "human", Content: "oi"},
		},
		{name: "invalid json", line: `{"session_id":`, wantOK: false},
		{name: "missing session", line: `{"message":{"content":"x"}}`, wantOK: false},
		{name: "missing content", line: `{"session_id":"s","message":{"type":"human"}}`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.SessionID != tt.want.SessionID ||
				got.Kind != tt.want.Kind ||
				got.Content != tt.want.Content ||
				!got.CreatedAt.Equal(tt.want.CreatedAt) {
				t.Errorf("parseLine() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
