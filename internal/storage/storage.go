// Package storage defines the persistence interface for locations and happenings and its
// SQLite implementation.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/gatherings/internal/models"
	"github.com/hyperjump/gatherings/internal/query"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidRecord is returned when a record is missing required fields.
var ErrInvalidRecord = errors.New("invalid record")

// Storage defines record persistence and search execution. Implementations also supply the
// scope predicates and column metadata the query core consults.
type Storage interface {
	query.Scopes
	query.SchemaDescriber

	// Location operations
	SaveLocation(ctx context.Context, loc *models.Location) error
	GetLocation(ctx context.Context, id string) (*models.Location, error)
	DeleteLocation(ctx context.Context, id string) error

	// Happening operations
	SaveHappening(ctx context.Context, h *models.Happening) error
	GetHappening(ctx context.Context, id string) (*models.Happening, error)
	DeleteHappening(ctx context.Context, id string) error

	MarkDuplicate(ctx context.Context, kind query.EntityKind, id, originalID string) error

	// Import sources
	RecordSource(ctx context.Context, path string, items []SourceItem) (int, error)
	AddSourceItems(ctx context.Context, path string, items []SourceItem) error
	DeleteSource(ctx context.Context, path string) (int, error)
	ListSources(ctx context.Context) ([]Source, error)

	// Search execution
	SearchLocations(ctx context.Context, spec *query.QuerySpec) ([]*models.Location, error)
	SearchHappenings(ctx context.Context, spec *query.QuerySpec) ([]*models.Happening, error)

	// Stats
	CountLocations(ctx context.Context) (int64, error)
	CountHappenings(ctx context.Context) (int64, error)

	Close() error
}
