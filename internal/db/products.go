package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Product is one entry of the service catalog the bot quotes
// prices from. Active carries the upstream "S"/"N" flag rather
// than a boolean; the dashboard toggles it without deleting rows.
type Product struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	CodeAMB     string  `json:"code_amb"`
	CodeCBHPM   string  `json:"code_cbhpm"`
	CodeTUSS    string  `json:"code_tuss"`
	Price       float64 `json:"price"`
	Active      string  `json:"active"`
	CreatedAt   string  `json:"created_at"`
}

const productBaseCols = `id, description, category, code_amb,
	code_cbhpm, code_tuss, price, active, created_at`

func scanProductRow(rs rowScanner) (Product, error) {
	var p Product
	err := rs.Scan(
		&p.ID, &p.Description, &p.Category, &p.CodeAMB,
		&p.CodeCBHPM, &p.CodeTUSS, &p.Price, &p.Active, &p.CreatedAt,
	)
	return p, err
}

// ListProducts returns the full catalog ordered by description.
func (db *DB) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := db.reader.QueryContext(ctx,
		"SELECT "+productBaseCols+
			" FROM products ORDER BY description ASC, id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct returns a single product by ID.
// Returns nil, nil if not found.
func (db *DB) GetProduct(ctx context.Context, id int64) (*Product, error) {
	row := db.reader.QueryRowContext(
		ctx,
		"SELECT "+productBaseCols+" FROM products WHERE id = ?",
		id,
	)
	p, err := scanProductRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// InsertProduct adds a catalog entry and returns its assigned ID.
func (db *DB) InsertProduct(p Product) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.writer.Exec(`
		INSERT INTO products
			(description, category, code_amb, code_cbhpm,
			 code_tuss, price, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Description, p.Category, p.CodeAMB, p.CodeCBHPM,
		p.CodeTUSS, p.Price, p.Active,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting product: %w", err)
	}
	return res.LastInsertId()
}

// UpdateProduct rewrites every mutable field of the product.
// Returns false when no row has that ID.
func (db *DB) UpdateProduct(id int64, p Product) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.writer.Exec(`
		UPDATE products SET
			description = ?, category = ?, code_amb = ?,
			code_cbhpm = ?, code_tuss = ?, price = ?, active = ?
		WHERE id = ?`,
		p.Description, p.Category, p.CodeAMB, p.CodeCBHPM,
		p.CodeTUSS, p.Price, p.Active, id,
	)
	if err != nil {
		return false, fmt.Errorf("updating product %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteProduct removes a catalog entry by ID. Returns false when
// no row has that ID.
func (db *DB) DeleteProduct(id int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.writer.Exec(
		"DELETE FROM products WHERE id = ?", id,
	)
	if err != nil {
		return false, fmt.Errorf("deleting product %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
