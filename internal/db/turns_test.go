package db

import (
	"context"
	"testing"
	"time"
)

var turnBase = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func insertTurn(t *testing.T, d *DB, session, kind, content string, ts time.Time) {
	t.Helper()
	if _, err := d.InsertTurn(Turn{
		SessionID: session,
		Kind:      kind,
		Content:   content,
		CreatedAt: ts,
	}); err != nil {
		t.Fatalf("InsertTurn: %v", err)
	}
}

func TestQueryTurns_RangeNewestFirst(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	insertTurn(t, d, "a", KindHuman, "first", turnBase)
	insertTurn(t, d, "a", KindAI, "second", turnBase.Add(time.Minute))
	insertTurn(t, d, "b", KindHuman, "third", turnBase.Add(2*time.Minute))
	// Outside the range below.
	insertTurn(t, d, "c", KindHuman, "old", turnBase.Add(-48*time.Hour))

	turns, err := d.QueryTurns(ctx, TurnFilter{
		From: turnBase.Add(-time.Hour),
		To:   turnBase.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("QueryTurns: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3", len(turns))
	}
	if turns[0].Content != "third" || turns[2].Content != "first" {
		t.Errorf("range query not newest first: %q .. %q",
			turns[0].Content, turns[2].Content)
	}
	if turns[0].Kind != KindHuman {
		t.Errorf("kind = %q, want %q", turns[0].Kind, KindHuman)
	}
	if !turns[2].CreatedAt.Equal(turnBase) {
		t.Errorf("created_at = %v, want %v", turns[2].CreatedAt, turnBase)
	}
}

func TestQueryTurns_SessionIgnoresRange(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	insertTurn(t, d, "a", KindAI, "reply", turnBase.Add(time.Minute))
	insertTurn(t, d, "a", KindHuman, "hello", turnBase)
	insertTurn(t, d, "a", KindHuman, "ancient", turnBase.Add(-24*365*time.Hour))
	insertTurn(t, d, "b", KindHuman, "other", turnBase)

	turns, err := d.QueryTurns(ctx, TurnFilter{
		SessionID: "a",
		From:      turnBase,
		To:        turnBase,
	})
	if err != nil {
		t.Fatalf("QueryTurns: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3 (time filter must be ignored)", len(turns))
	}
	if turns[0].Content != "ancient" || turns[2].Content != "reply" {
		t.Errorf("session query not oldest first: %q .. %q",
			turns[0].Content, turns[2].Content)
	}
}

func TestQueryTurns_NullTimestampExcluded(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	insertTurn(t, d, "a", KindHuman, "ok", turnBase)
	// Zero CreatedAt is stored as NULL.
	insertTurn(t, d, "a", KindHuman, "no timestamp", time.Time{})

	turns, err := d.QueryTurns(ctx, TurnFilter{SessionID: "a"})
	if err != nil {
		t.Fatalf("QueryTurns: %v", err)
	}
	if len(turns) != 1 || turns[0].Content != "ok" {
		t.Errorf("got %v, want only the timestamped row", turns)
	}
}

func TestQueryTurns_UnparsableTimestampScansAsZero(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	if _, err := d.writer.Exec(`
		INSERT INTO turns (session_id, kind, content, created_at)
		VALUES ('a', 'human', 'bad ts', 'not-a-time')`); err != nil {
		t.Fatalf("seeding malformed row: %v", err)
	}

	turns, err := d.QueryTurns(ctx, TurnFilter{SessionID: "a"})
	if err != nil {
		t.Fatalf("QueryTurns: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1 (malformed row must still surface)", len(turns))
	}
	if !turns[0].CreatedAt.IsZero() {
		t.Errorf("created_at = %v, want zero time", turns[0].CreatedAt)
	}
}

func TestReplaceFileTurns(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	first := []Turn{
		{SessionID: "a", Kind: KindHuman, Content: "v1", CreatedAt: turnBase},
	}
	if err := d.ReplaceFileTurns("/logs/a.jsonl", 100, 1, first); err != nil {
		t.Fatalf("ReplaceFileTurns: %v", err)
	}

	// Re-ingesting the grown file must replace, not duplicate.
	second := []Turn{
		{SessionID: "a", Kind: KindHuman, Content: "v1", CreatedAt: turnBase},
		{SessionID: "a", Kind: KindAI, Content: "v2", CreatedAt: turnBase.Add(time.Minute)},
	}
	if err := d.ReplaceFileTurns("/logs/a.jsonl", 200, 2, second); err != nil {
		t.Fatalf("ReplaceFileTurns (again): %v", err)
	}

	turns, err := d.QueryTurns(ctx, TurnFilter{SessionID: "a"})
	if err != nil {
		t.Fatalf("QueryTurns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns after re-ingest, want 2", len(turns))
	}

	files, err := d.LoadIngestedFiles()
	if err != nil {
		t.Fatalf("LoadIngestedFiles: %v", err)
	}
	fs, ok := files["/logs/a.jsonl"]
	if !ok {
		t.Fatal("ingested file not recorded")
	}
	if fs.Size != 200 || fs.Mtime != 2 {
		t.Errorf("fingerprint = %+v, want size 200 mtime 2", fs)
	}
}
