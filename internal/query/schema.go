package query

import (
	"context"
	"fmt"
	"sort"
)

// Store tables the policies refer to.
const (
	TableLocations  = "locations"
	TableHappenings = "happenings"
	TableTags       = "tags"
	TableTaggings   = "taggings"
)

// LocationColumns are the native columns of the locations table.
var LocationColumns = []string{
	"id", "title", "description", "address", "url",
	"wifi", "closed", "duplicate_of_id", "created_at", "updated_at",
}

// HappeningColumns are the native columns of the happenings table.
var HappeningColumns = []string{
	"id", "title", "description", "url", "start_time", "end_time",
	"location_id", "duplicate_of_id", "created_at", "updated_at",
}

// SchemaDescriber reports the columns a store table actually has.
type SchemaDescriber interface {
	Columns(ctx context.Context, table string) ([]string, error)
}

// ValidateSchema checks every policy's group keys against the store schema: each key must
// name an existing column, and the keys must cover every column of the policy's base table so
// that grouping collapses tag fan-out without merging distinct entities. Run it once at
// startup.
func ValidateSchema(ctx context.Context, d *Dispatcher, desc SchemaDescriber) error {
	cache := make(map[string]map[string]bool)
	columnsOf := func(table string) (map[string]bool, error) {
		if cols, ok := cache[table]; ok {
			return cols, nil
		}
		names, err := desc.Columns(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", table, err)
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("%w: table %s does not exist", ErrSchemaMismatch, table)
		}
		cols := make(map[string]bool, len(names))
		for _, n := range names {
			cols[n] = true
		}
		cache[table] = cols
		return cols, nil
	}

	for _, policy := range d.Policies() {
		declared := make(map[string]bool)
		for _, key := range policy.GroupKeys() {
			cols, err := columnsOf(key.Table)
			if err != nil {
				return err
			}
			if !cols[key.Name] {
				return fmt.Errorf("%w: %s group key %s is not a column", ErrSchemaMismatch, policy.Kind(), key)
			}
			if key.Table == policy.Table() {
				declared[key.Name] = true
			}
		}
		base, err := columnsOf(policy.Table())
		if err != nil {
			return err
		}
		var missing []string
		for name := range base {
			if !declared[name] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return fmt.Errorf("%w: %s group keys miss columns %v", ErrSchemaMismatch, policy.Kind(), missing)
		}
	}
	return nil
}

func columnRefs(table string, names []string) []ColumnRef {
	refs := make([]ColumnRef, len(names))
	for i, n := range names {
		refs[i] = Col(table, n)
	}
	return refs
}
