package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/gatherings/internal/models"
	"github.com/hyperjump/gatherings/internal/query"
)

// TimeLayout is the text form of every stored timestamp. Values are always UTC, so text
// comparison orders them chronologically.
const TimeLayout = "2006-01-02 15:04:05"

// driverName is the go-sqlite3 driver with Unicode-aware case folding. SQLite's built-in
// LOWER and LIKE fold ASCII letters only.
const driverName = "sqlite3_gatherings"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", foldLower, true)
		},
	})
}

// foldLower replaces SQLite's LOWER. NULL stays NULL; numbers pass through.
func foldLower(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return strings.ToLower(val)
	case []byte:
		if val == nil {
			return nil
		}
		return strings.ToLower(string(val))
	default:
		return v
	}
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open(driverName, dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		wifi INTEGER NOT NULL DEFAULT 0,
		closed INTEGER NOT NULL DEFAULT 0,
		duplicate_of_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_locations_duplicate_of ON locations(duplicate_of_id);

	CREATE TABLE IF NOT EXISTS happenings (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL,
		end_time TEXT,
		location_id TEXT,
		duplicate_of_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_happenings_start_time ON happenings(start_time);
	CREATE INDEX IF NOT EXISTS idx_happenings_location_id ON happenings(location_id);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE
	);

	CREATE TABLE IF NOT EXISTS taggings (
		tag_id INTEGER NOT NULL,
		taggable_id TEXT NOT NULL,
		taggable_type TEXT NOT NULL,
		PRIMARY KEY (taggable_type, taggable_id, tag_id),
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_taggings_tag_id ON taggings(tag_id);

	CREATE TABLE IF NOT EXISTS sources (
		path TEXT PRIMARY KEY,
		imported_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS source_items (
		source_path TEXT NOT NULL,
		entity_kind TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		PRIMARY KEY (source_path, entity_kind, entity_id),
		FOREIGN KEY (source_path) REFERENCES sources(path) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// SaveLocation inserts the location or replaces the stored row with the same ID, then
// replaces its tags. An empty ID is filled with a new random one.
func (s *SQLiteStorage) SaveLocation(ctx context.Context, loc *models.Location) error {
	if strings.TrimSpace(loc.Title) == "" {
		return fmt.Errorf("%w: location title is required", ErrInvalidRecord)
	}
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = now
	}
	loc.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO locations (id, title, description, address, url, wifi, closed, duplicate_of_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title, description = excluded.description, address = excluded.address,
		   url = excluded.url, wifi = excluded.wifi, closed = excluded.closed,
		   duplicate_of_id = excluded.duplicate_of_id, updated_at = excluded.updated_at`,
		loc.ID, loc.Title, loc.Description, loc.Address, loc.URL, loc.Wifi, loc.Closed,
		nullString(loc.DuplicateOfID), formatTime(loc.CreatedAt), formatTime(loc.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}
	if err := setTags(ctx, tx, query.KindLocation, loc.ID, loc.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// GetLocation returns a location by ID, with its tags.
func (s *SQLiteStorage) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectList(locationSelect)+` FROM locations WHERE id = ?`, id)
	loc, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachLocationTags(ctx, []*models.Location{loc}); err != nil {
		return nil, err
	}
	return loc, nil
}

// DeleteLocation removes a location and its taggings. Happenings held there keep their
// location_id and are returned without a location title.
func (s *SQLiteStorage) DeleteLocation(ctx context.Context, id string) error {
	return s.deleteEntity(ctx, query.KindLocation, id)
}

// SaveHappening inserts the happening or replaces the stored row with the same ID, then
// replaces its tags.
func (s *SQLiteStorage) SaveHappening(ctx context.Context, h *models.Happening) error {
	if strings.TrimSpace(h.Title) == "" {
		return fmt.Errorf("%w: happening title is required", ErrInvalidRecord)
	}
	if h.StartTime.IsZero() {
		return fmt.Errorf("%w: happening start_time is required", ErrInvalidRecord)
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	h.UpdatedAt = now

	var end sql.NullString
	if h.EndTime != nil {
		end = sql.NullString{String: formatTime(*h.EndTime), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO happenings (id, title, description, url, start_time, end_time, location_id, duplicate_of_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title, description = excluded.description, url = excluded.url,
		   start_time = excluded.start_time, end_time = excluded.end_time,
		   location_id = excluded.location_id, duplicate_of_id = excluded.duplicate_of_id,
		   updated_at = excluded.updated_at`,
		h.ID, h.Title, h.Description, h.URL, formatTime(h.StartTime), end,
		nullString(h.LocationID), nullString(h.DuplicateOfID),
		formatTime(h.CreatedAt), formatTime(h.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save happening: %w", err)
	}
	if err := setTags(ctx, tx, query.KindHappening, h.ID, h.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// GetHappening returns a happening by ID, with its tags and location title.
func (s *SQLiteStorage) GetHappening(ctx context.Context, id string) (*models.Happening, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectList(happeningSelect)+` FROM happenings
		 LEFT OUTER JOIN locations ON locations.id = happenings.location_id
		 WHERE happenings.id = ?`, id)
	h, err := scanHappening(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("happening %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachHappeningTags(ctx, []*models.Happening{h}); err != nil {
		return nil, err
	}
	return h, nil
}

// DeleteHappening removes a happening and its taggings.
func (s *SQLiteStorage) DeleteHappening(ctx context.Context, id string) error {
	return s.deleteEntity(ctx, query.KindHappening, id)
}

func (s *SQLiteStorage) deleteEntity(ctx context.Context, kind query.EntityKind, id string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM taggings WHERE taggable_type = ? AND taggable_id = ?`,
		kind.TaggableType(), id,
	); err != nil {
		return fmt.Errorf("failed to delete taggings: %w", err)
	}
	return tx.Commit()
}

// MarkDuplicate flags id as a duplicate of originalID, hiding it from searches.
// An empty originalID clears the flag.
func (s *SQLiteStorage) MarkDuplicate(ctx context.Context, kind query.EntityKind, id, originalID string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	if id == originalID {
		return fmt.Errorf("%w: %s %s cannot duplicate itself", ErrInvalidRecord, kind, id)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE `+table+` SET duplicate_of_id = ?, updated_at = ? WHERE id = ?`,
		nullString(originalID), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark duplicate: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

// CountLocations returns the total number of locations.
func (s *SQLiteStorage) CountLocations(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations`).Scan(&count)
	return count, err
}

// CountHappenings returns the total number of happenings.
func (s *SQLiteStorage) CountHappenings(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM happenings`).Scan(&count)
	return count, err
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func tableFor(kind query.EntityKind) (string, error) {
	switch kind {
	case query.KindLocation:
		return query.TableLocations, nil
	case query.KindHappening:
		return query.TableHappenings, nil
	default:
		return "", &query.UnsupportedEntityError{Kind: kind}
	}
}
