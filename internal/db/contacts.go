package db

import (
	"context"
	"database/sql"
	"fmt"
)

// GetContactName resolves a phone number to a stored contact
// name. Returns "" with no error when the contact is unknown.
func (db *DB) GetContactName(
	ctx context.Context, phone string,
) (string, error) {
	var name string
	err := db.reader.QueryRowContext(
		ctx,
		"SELECT name FROM contacts WHERE phone = ?",
		phone,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting contact %s: %w", phone, err)
	}
	return name, nil
}

// UpsertContact stores or updates the display name for a phone
// number.
func (db *DB) UpsertContact(phone, name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.writer.Exec(`
		INSERT INTO contacts (phone, name) VALUES (?, ?)
		ON CONFLICT(phone) DO UPDATE SET name = excluded.name`,
		phone, name,
	)
	if err != nil {
		return fmt.Errorf("upserting contact: %w", err)
	}
	return nil
}
