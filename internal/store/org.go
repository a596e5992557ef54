package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Organization is an owning scope for projects.
type Organization struct {
	ID   int64
	Name string
}

// EnsureOrganization returns the id for the named organization, creating
// the row if it doesn't exist yet.
func (db *DB) EnsureOrganization(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("organization name cannot be empty")
	}

	var id int64
	err := db.conn.QueryRowContext(ctx,
		"SELECT id FROM organizations WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to query organization: %w", err)
	}

	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO organizations (name, created_at) VALUES (?, ?)", name, now())
	if err != nil {
		return 0, fmt.Errorf("failed to create organization: %w", err)
	}

	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read organization id: %w", err)
	}
	return id, nil
}

// ListOrganizations returns all organizations ordered by name.
func (db *DB) ListOrganizations(ctx context.Context) ([]*Organization, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, name FROM organizations ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, &o)
	}
	return orgs, rows.Err()
}
