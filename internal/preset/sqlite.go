package preset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brookman/respeaker-go/internal/infrastructure/database"
)

// SQLiteRepository implements Repository backed by SQLite.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository creates a repository and ensures its schema exists.
func NewSQLiteRepository(ctx context.Context, db *database.DB) (*SQLiteRepository, error) {
	r := &SQLiteRepository{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS presets (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			values_json TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating presets table: %w", err)
	}
	return nil
}

// Save inserts or updates the preset. A missing ID is filled in with a
// new UUID; CreatedAt is set on first insert only.
func (r *SQLiteRepository) Save(ctx context.Context, p *Preset) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	valuesJSON, err := encodeValues(p.Values)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO presets (id, name, description, values_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			values_json = excluded.values_json,
			updated_at = excluded.updated_at
	`,
		p.ID, p.Name, p.Description, valuesJSON,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateName, p.Name)
		}
		return fmt.Errorf("saving preset: %w", err)
	}
	return nil
}

// Get returns the preset with the given ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Preset, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, values_json, created_at, updated_at
		FROM presets WHERE id = ?
	`, id)
	return scanPreset(row)
}

// GetByName returns the preset with the given name.
func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*Preset, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, values_json, created_at, updated_at
		FROM presets WHERE name = ?
	`, name)
	return scanPreset(row)
}

// List returns all presets ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Preset, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT id, name, description, values_json, created_at, updated_at
		FROM presets ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing presets: %w", err)
	}
	defer rows.Close()

	var presets []*Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating presets: %w", err)
	}
	return presets, nil
}

// Delete removes the preset with the given ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM presets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting preset: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting preset: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(s scanner) (*Preset, error) {
	var p Preset
	var valuesJSON, createdAt, updatedAt string

	err := s.Scan(&p.ID, &p.Name, &p.Description, &valuesJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning preset: %w", err)
	}

	p.Values, err = decodeValues(valuesJSON)
	if err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

// isUniqueViolation reports whether err is SQLite's UNIQUE constraint
// failure. The driver has no typed error for it, so this string check is
// the accepted way to detect it.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
