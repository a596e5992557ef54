package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Item kinds. Check-ins are item rows with kind "checkin"; the check-ins
// surface is a view over the items table, not its own table.
const (
	ItemKindTask    = "task"
	ItemKindCheckin = "checkin"
)

// Item is a unit of work or a check-in note.
type Item struct {
	ID        int64
	Title     string
	Kind      string
	Status    string
	ProjectID *int64
	Notes     string
}

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var (
		it      Item
		project sql.NullInt64
		notes   sql.NullString
	)
	if err := row.Scan(&it.ID, &it.Title, &it.Kind, &it.Status, &project, &notes); err != nil {
		return nil, err
	}
	if project.Valid {
		id := project.Int64
		it.ProjectID = &id
	}
	it.Notes = notes.String
	return &it, nil
}

// CreateItem inserts an item and returns its new id.
func (db *DB) CreateItem(ctx context.Context, it *Item) (int64, error) {
	if it.Title == "" {
		return 0, fmt.Errorf("title cannot be empty")
	}
	if it.Kind == "" {
		it.Kind = ItemKindTask
	}
	if it.Status == "" {
		it.Status = "pending"
	}

	var projectArg any
	if it.ProjectID != nil {
		projectArg = *it.ProjectID
	}

	ts := now()
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO items (title, kind, status, project_id, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		it.Title, it.Kind, it.Status, projectArg, it.Notes, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("failed to create item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read item id: %w", err)
	}
	it.ID = id
	return id, nil
}

// GetItem fetches an item by id. Returns (nil, nil) when absent.
func (db *DB) GetItem(ctx context.Context, id int64) (*Item, error) {
	it, err := scanItem(db.conn.QueryRowContext(ctx,
		"SELECT id, title, kind, status, project_id, notes FROM items WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", id, err)
	}
	return it, nil
}

// UpdateItem writes the mutable fields of an existing item.
func (db *DB) UpdateItem(ctx context.Context, it *Item) error {
	if it.ID == 0 {
		return fmt.Errorf("item id is required for update")
	}

	var projectArg any
	if it.ProjectID != nil {
		projectArg = *it.ProjectID
	}

	res, err := db.conn.ExecContext(ctx, `
		UPDATE items SET title = ?, kind = ?, status = ?, project_id = ?,
			notes = ?, updated_at = ?
		WHERE id = ?`,
		it.Title, it.Kind, it.Status, projectArg, it.Notes, now(), it.ID)
	if err != nil {
		return fmt.Errorf("failed to update item %d: %w", it.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %d does not exist", it.ID)
	}
	return nil
}

// DeleteItem removes an item. Deleting a missing item is not an error —
// deletion is idempotent.
func (db *DB) DeleteItem(ctx context.Context, id int64) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete item %d: %w", id, err)
	}
	return nil
}

// ListItems returns items, optionally filtered by kind ("" for all).
func (db *DB) ListItems(ctx context.Context, kind string) ([]*Item, error) {
	query := "SELECT id, title, kind, status, project_id, notes FROM items"
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY id"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
