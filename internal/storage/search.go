package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hyperjump/gatherings/internal/models"
	"github.com/hyperjump/gatherings/internal/query"
)

type scanner interface {
	Scan(dest ...any) error
}

// SearchLocations runs a location QuerySpec and returns one record per matching location,
// each with its tags.
func (s *SQLiteStorage) SearchLocations(ctx context.Context, spec *query.QuerySpec) ([]*models.Location, error) {
	if spec != nil && spec.Kind != query.KindLocation {
		return nil, fmt.Errorf("%w: %s spec passed to location search", query.ErrInvalidSpec, spec.Kind)
	}
	stmt, err := Compile(spec)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search locations: %w", err)
	}
	defer rows.Close()

	locs := []*models.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locs = append(locs, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachLocationTags(ctx, locs); err != nil {
		return nil, err
	}
	return locs, nil
}

// SearchHappenings runs a happening QuerySpec and returns one record per matching happening,
// each with its tags and location title.
func (s *SQLiteStorage) SearchHappenings(ctx context.Context, spec *query.QuerySpec) ([]*models.Happening, error) {
	if spec != nil && spec.Kind != query.KindHappening {
		return nil, fmt.Errorf("%w: %s spec passed to happening search", query.ErrInvalidSpec, spec.Kind)
	}
	stmt, err := Compile(spec)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search happenings: %w", err)
	}
	defer rows.Close()

	hs := []*models.Happening{}
	for rows.Next() {
		h, err := scanHappening(rows)
		if err != nil {
			return nil, err
		}
		hs = append(hs, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachHappeningTags(ctx, hs); err != nil {
		return nil, err
	}
	return hs, nil
}

// scanLocation reads the columns of locationSelect.
func scanLocation(row scanner) (*models.Location, error) {
	var loc models.Location
	var dup sql.NullString
	var created, updated string
	if err := row.Scan(&loc.ID, &loc.Title, &loc.Description, &loc.Address, &loc.URL,
		&loc.Wifi, &loc.Closed, &dup, &created, &updated); err != nil {
		return nil, err
	}
	loc.DuplicateOfID = dup.String
	var err error
	if loc.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if loc.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &loc, nil
}

// scanHappening reads the columns of happeningSelect.
func scanHappening(row scanner) (*models.Happening, error) {
	var h models.Happening
	var end, locationID, dup, locationTitle sql.NullString
	var start, created, updated string
	if err := row.Scan(&h.ID, &h.Title, &h.Description, &h.URL, &start, &end,
		&locationID, &dup, &created, &updated, &locationTitle); err != nil {
		return nil, err
	}
	h.LocationID = locationID.String
	h.DuplicateOfID = dup.String
	h.LocationTitle = locationTitle.String

	var err error
	if h.StartTime, err = parseTime(start); err != nil {
		return nil, err
	}
	if end.Valid {
		t, err := parseTime(end.String)
		if err != nil {
			return nil, err
		}
		h.EndTime = &t
	}
	if h.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if h.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &h, nil
}
