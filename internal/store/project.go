package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Project is the relational counterpart of a knowledge-base project folder.
// Status always holds a database-vocabulary value.
type Project struct {
	ID          int64
	Slug        string
	Name        string
	OrgID       int64
	Status      string
	Priority    int
	ParentID    *int64
	Description string
	SubProject  bool
	ReviewAt    *time.Time
}

const projectColumns = `id, slug, name, org_id, status, priority, parent_id,
	description, sub_project, review_at`

// scanProject reads one project row.
func scanProject(row interface{ Scan(...any) error }) (*Project, error) {
	var (
		p        Project
		desc     sql.NullString
		parent   sql.NullInt64
		reviewAt sql.NullString
		sub      int
	)
	if err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.OrgID, &p.Status,
		&p.Priority, &parent, &desc, &sub, &reviewAt); err != nil {
		return nil, err
	}
	p.Description = desc.String
	if parent.Valid {
		id := parent.Int64
		p.ParentID = &id
	}
	p.SubProject = sub != 0
	if reviewAt.Valid && reviewAt.String != "" {
		if t, err := time.Parse(time.RFC3339, reviewAt.String); err == nil {
			p.ReviewAt = &t
		}
	}
	return &p, nil
}

// GetProjectBySlug looks a project up within its (organization, parent)
// scope. A nil parentID addresses top-level projects.
//
// Returns (nil, nil) when no project matches — absence is an expected
// answer for the reconciler, not an error.
func (db *DB) GetProjectBySlug(ctx context.Context, orgID int64, parentID *int64, slug string) (*Project, error) {
	query := "SELECT " + projectColumns + ` FROM projects
		WHERE org_id = ? AND slug = ? AND COALESCE(parent_id, 0) = COALESCE(?, 0)`

	var parentArg any
	if parentID != nil {
		parentArg = *parentID
	}

	p, err := scanProject(db.conn.QueryRowContext(ctx, query, orgID, slug, parentArg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %q: %w", slug, err)
	}
	return p, nil
}

// GetProject fetches a project by id. Returns (nil, nil) when absent.
func (db *DB) GetProject(ctx context.Context, id int64) (*Project, error) {
	query := "SELECT " + projectColumns + " FROM projects WHERE id = ?"
	p, err := scanProject(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %d: %w", id, err)
	}
	return p, nil
}

// ListProjects returns all projects ordered by organization, parent scope,
// then slug. This is what the CLI status view renders.
func (db *DB) ListProjects(ctx context.Context) ([]*Project, error) {
	query := "SELECT " + projectColumns + ` FROM projects
		ORDER BY org_id, COALESCE(parent_id, 0), slug`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateProject inserts a project and returns its new id.
//
// A slug collision within the same (organization, parent) scope fails on
// the unique index; callers treat that as a reconciliation conflict.
func (db *DB) CreateProject(ctx context.Context, p *Project) (int64, error) {
	if p.Slug == "" {
		return 0, fmt.Errorf("slug cannot be empty")
	}
	if p.Name == "" {
		return 0, fmt.Errorf("name cannot be empty")
	}

	var parentArg any
	if p.ParentID != nil {
		parentArg = *p.ParentID
	}
	var reviewArg any
	if p.ReviewAt != nil {
		reviewArg = p.ReviewAt.UTC().Format(time.RFC3339)
	}

	ts := now()
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO projects (slug, name, org_id, status, priority, parent_id,
			description, sub_project, review_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.Name, p.OrgID, p.Status, p.Priority, parentArg,
		p.Description, boolToInt(p.SubProject), reviewArg, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("failed to create project %q: %w", p.Slug, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read project id: %w", err)
	}
	p.ID = id
	return id, nil
}

// UpdateProject writes the mutable fields of an existing project.
func (db *DB) UpdateProject(ctx context.Context, p *Project) error {
	if p.ID == 0 {
		return fmt.Errorf("project id is required for update")
	}

	var parentArg any
	if p.ParentID != nil {
		parentArg = *p.ParentID
	}
	var reviewArg any
	if p.ReviewAt != nil {
		reviewArg = p.ReviewAt.UTC().Format(time.RFC3339)
	}

	res, err := db.conn.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, status = ?, priority = ?, parent_id = ?,
		    description = ?, sub_project = ?, review_at = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Status, p.Priority, parentArg,
		p.Description, boolToInt(p.SubProject), reviewArg, now(), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update project %d: %w", p.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("project %d does not exist", p.ID)
	}
	return nil
}

// ProjectCount returns the number of project rows.
func (db *DB) ProjectCount(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM projects").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
