package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Insight represents one question/answer pair in the insights
// history.
type Insight struct {
	ID        string `json:"id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	CreatedAt string `json:"created_at"`
}

const insightBaseCols = `id, question, answer, created_at`

func scanInsightRow(rs rowScanner) (Insight, error) {
	var s Insight
	err := rs.Scan(&s.ID, &s.Question, &s.Answer, &s.CreatedAt)
	return s, err
}

// InsertInsight stores an insight under its caller-assigned ID.
func (db *DB) InsertInsight(s Insight) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.writer.Exec(`
		INSERT INTO insights (id, question, answer)
		VALUES (?, ?, ?)`,
		s.ID, s.Question, s.Answer,
	)
	if err != nil {
		return fmt.Errorf("inserting insight: %w", err)
	}
	return nil
}

const maxInsights = 500

// ListInsights returns insights ordered by created_at DESC,
// capped at 500 rows.
func (db *DB) ListInsights(ctx context.Context) ([]Insight, error) {
	query := "SELECT " + insightBaseCols +
		" FROM insights ORDER BY created_at DESC, id DESC" +
		fmt.Sprintf(" LIMIT %d", maxInsights)

	rows, err := db.reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying insights: %w", err)
	}
	defer rows.Close()

	var insights []Insight
	for rows.Next() {
		s, err := scanInsightRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning insight: %w", err)
		}
		insights = append(insights, s)
	}
	return insights, rows.Err()
}

// GetInsight returns a single insight by ID.
// Returns nil, nil if not found.
func (db *DB) GetInsight(ctx context.Context, id string) (*Insight, error) {
	row := db.reader.QueryRowContext(
		ctx,
		"SELECT "+insightBaseCols+" FROM insights WHERE id = ?",
		id,
	)
	s, err := scanInsightRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting insight %s: %w", id, err)
	}
	return &s, nil
}

// DeleteInsight removes an insight by ID.
func (db *DB) DeleteInsight(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.writer.Exec(
		"DELETE FROM insights WHERE id = ?", id,
	)
	return err
}
