package preset

import (
	"context"
	"errors"
)

// Sentinel errors returned by Repository implementations.
var (
	// ErrNotFound is returned when a preset does not exist.
	ErrNotFound = errors.New("preset: not found")

	// ErrDuplicateName is returned when saving a preset whose name is
	// already taken by a different preset.
	ErrDuplicateName = errors.New("preset: name already exists")
)

// Repository defines the persistence interface for presets.
//
// Implementations must be safe for concurrent use.
type Repository interface {
	// Save inserts the preset, or updates it when a preset with the
	// same ID already exists. UpdatedAt is set by the repository.
	Save(ctx context.Context, p *Preset) error

	// Get returns the preset with the given ID.
	// Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*Preset, error)

	// GetByName returns the preset with the given name.
	// Returns ErrNotFound if it does not exist.
	GetByName(ctx context.Context, name string) (*Preset, error)

	// List returns all presets ordered by name.
	List(ctx context.Context) ([]*Preset, error)

	// Delete removes the preset with the given ID.
	// Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}
