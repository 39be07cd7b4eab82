package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hyperjump/gatherings/internal/models"
	"github.com/hyperjump/gatherings/internal/query"
)

// setTags replaces the taggings of one entity. Tag names are matched case-insensitively;
// the first spelling stored wins.
func setTags(ctx context.Context, tx *sql.Tx, kind query.EntityKind, id string, names []string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM taggings WHERE taggable_type = ? AND taggable_id = ?`,
		kind.TaggableType(), id,
	); err != nil {
		return fmt.Errorf("failed to clear taggings: %w", err)
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true

		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("failed to create tag %q: %w", name, err)
		}
		var tagID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&tagID); err != nil {
			return fmt.Errorf("failed to look up tag %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO taggings (tag_id, taggable_id, taggable_type) VALUES (?, ?, ?)`,
			tagID, id, kind.TaggableType(),
		); err != nil {
			return fmt.Errorf("failed to tag %s %s: %w", kind, id, err)
		}
	}
	return nil
}

// tagsFor returns tag names keyed by entity ID, sorted by name.
func (s *SQLiteStorage) tagsFor(ctx context.Context, kind query.EntityKind, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids)+1)
	args = append(args, kind.TaggableType())
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT taggings.taggable_id, tags.name FROM taggings
		 JOIN tags ON tags.id = taggings.tag_id
		 WHERE taggings.taggable_type = ? AND taggings.taggable_id IN (`+placeholders+`)
		 ORDER BY tags.name`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) attachLocationTags(ctx context.Context, locs []*models.Location) error {
	ids := make([]string, len(locs))
	for i, l := range locs {
		ids[i] = l.ID
	}
	tags, err := s.tagsFor(ctx, query.KindLocation, ids)
	if err != nil {
		return err
	}
	for _, l := range locs {
		l.Tags = tags[l.ID]
	}
	return nil
}

func (s *SQLiteStorage) attachHappeningTags(ctx context.Context, hs []*models.Happening) error {
	ids := make([]string, len(hs))
	for i, h := range hs {
		ids[i] = h.ID
	}
	tags, err := s.tagsFor(ctx, query.KindHappening, ids)
	if err != nil {
		return err
	}
	for _, h := range hs {
		h.Tags = tags[h.ID]
	}
	return nil
}
