package store

import (
	"context"
	"fmt"
)

// Person is a contact referenced by items and meetings.
type Person struct {
	ID    int64
	Name  string
	Email string
}

// CreatePerson inserts a person and returns the new id.
func (db *DB) CreatePerson(ctx context.Context, p *Person) (int64, error) {
	if p.Name == "" {
		return 0, fmt.Errorf("name cannot be empty")
	}

	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO people (name, email, created_at) VALUES (?, ?, ?)",
		p.Name, p.Email, now())
	if err != nil {
		return 0, fmt.Errorf("failed to create person: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read person id: %w", err)
	}
	p.ID = id
	return id, nil
}

// ListPeople returns all people ordered by name.
func (db *DB) ListPeople(ctx context.Context) ([]*Person, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, name, COALESCE(email, '') FROM people ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	var people []*Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Email); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, &p)
	}
	return people, rows.Err()
}
