package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/gatherings/internal/query"
)

// Source is an imported file and the records it produced.
type Source struct {
	Path       string    `json:"path"`
	ImportedAt time.Time `json:"imported_at"`
	Items      int       `json:"items"`
}

// SourceItem is one record created by an import source.
type SourceItem struct {
	Kind query.EntityKind
	ID   string
}

// RecordSource replaces the item list of an import source. Records the source produced
// before but no longer lists are deleted; the number deleted is returned.
func (s *SQLiteStorage) RecordSource(ctx context.Context, path string, items []SourceItem) (int, error) {
	previous, err := s.sourceItems(ctx, path)
	if err != nil {
		return 0, err
	}

	current := make(map[SourceItem]bool, len(items))
	for _, item := range items {
		current[item] = true
	}
	if err := s.writeSourceItems(ctx, path, items, true); err != nil {
		return 0, err
	}

	removed := 0
	for _, item := range previous {
		if current[item] {
			continue
		}
		if err := s.deleteEntity(ctx, item.Kind, item.ID); err == nil {
			removed++
		}
	}
	return removed, nil
}

// AddSourceItems adds items to an import source, keeping the items it already lists. Nothing
// is deleted.
func (s *SQLiteStorage) AddSourceItems(ctx context.Context, path string, items []SourceItem) error {
	return s.writeSourceItems(ctx, path, items, false)
}

// writeSourceItems upserts the source row and inserts items, first clearing the old item
// list when replace is set.
func (s *SQLiteStorage) writeSourceItems(ctx context.Context, path string, items []SourceItem, replace bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sources (path, imported_at) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET imported_at = excluded.imported_at`,
		path, formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("failed to record source: %w", err)
	}
	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM source_items WHERE source_path = ?`, path); err != nil {
			return fmt.Errorf("failed to clear source items: %w", err)
		}
	}
	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO source_items (source_path, entity_kind, entity_id) VALUES (?, ?, ?)`,
			path, string(item.Kind), item.ID,
		); err != nil {
			return fmt.Errorf("failed to record source item: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStorage) sourceItems(ctx context.Context, path string) ([]SourceItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_kind, entity_id FROM source_items WHERE source_path = ?`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to list source items: %w", err)
	}
	defer rows.Close()

	var items []SourceItem
	for rows.Next() {
		var kind, id string
		if err := rows.Scan(&kind, &id); err != nil {
			return nil, err
		}
		items = append(items, SourceItem{Kind: query.EntityKind(kind), ID: id})
	}
	return items, rows.Err()
}

// DeleteSource removes an import source and every record it produced. It returns the number
// of records removed. Unknown paths remove nothing.
func (s *SQLiteStorage) DeleteSource(ctx context.Context, path string) (int, error) {
	items, err := s.sourceItems(ctx, path)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, item := range items {
		if err := s.deleteEntity(ctx, item.Kind, item.ID); err == nil {
			removed++
		}
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE path = ?`, path); err != nil {
		return removed, fmt.Errorf("failed to delete source: %w", err)
	}
	return removed, nil
}

// ListSources returns every import source, ordered by path.
func (s *SQLiteStorage) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sources.path, sources.imported_at, COUNT(source_items.entity_id)
		 FROM sources LEFT OUTER JOIN source_items ON source_items.source_path = sources.path
		 GROUP BY sources.path, sources.imported_at
		 ORDER BY sources.path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var src Source
		var importedAt string
		if err := rows.Scan(&src.Path, &importedAt, &src.Items); err != nil {
			return nil, err
		}
		if src.ImportedAt, err = parseTime(importedAt); err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}
