package storage

import (
	"context"
	"fmt"

	"github.com/hyperjump/gatherings/internal/query"
)

// NonDuplicates keeps records that are not flagged as a duplicate of another record.
func (s *SQLiteStorage) NonDuplicates(kind query.EntityKind) query.Predicate {
	table, err := tableFor(kind)
	if err != nil {
		return query.All()
	}
	return query.IsNull(query.Col(table, "duplicate_of_id"))
}

// InBusiness keeps locations that are not closed.
func (s *SQLiteStorage) InBusiness() query.Predicate {
	return query.Eq(query.Plain(query.Col(query.TableLocations, "closed")), false)
}

// HasAmenity keeps locations that advertise the amenity. Unknown amenities match nothing.
func (s *SQLiteStorage) HasAmenity(a query.Amenity) query.Predicate {
	switch a {
	case query.AmenityWifi:
		return query.Eq(query.Plain(query.Col(query.TableLocations, "wifi")), true)
	default:
		return query.Any()
	}
}

// Columns returns the column names of table in declaration order. A missing table yields no
// columns and no error.
func (s *SQLiteStorage) Columns(ctx context.Context, table string) ([]string, error) {
	if !validIdent(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}
