package db

import (
	"context"
	"fmt"
)

// Stats summarizes the stored data volumes.
type Stats struct {
	Turns    int64 `json:"turns"`
	Sessions int64 `json:"sessions"`
	Insights int64 `json:"insights"`
}

// GetStats returns row counts across the main tables.
func (db *DB) GetStats(ctx context.Context) (Stats, error) {
	var s Stats
	query := `SELECT
		(SELECT COUNT(*) FROM turns),
		(SELECT COUNT(DISTINCT session_id) FROM turns),
		(SELECT COUNT(*) FROM insights)`
	err := db.reader.QueryRowContext(ctx, query).Scan(
		&s.Turns, &s.Sessions, &s.Insights,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("querying stats: %w", err)
	}
	return s, nil
}
