package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/hyperjump/gatherings/internal/models"
	"github.com/hyperjump/gatherings/internal/query"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_LocationCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	loc := &models.Location{
		Title:       "Blue Bottle",
		Description: "Coffee",
		Wifi:        true,
		Tags:        []string{"coffee", "Wifi", "COFFEE", " "},
	}
	if err := store.SaveLocation(ctx, loc); err != nil {
		t.Fatal(err)
	}
	if loc.ID == "" {
		t.Fatal("ID should be assigned")
	}
	if loc.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetLocation(ctx, loc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Blue Bottle" || !got.Wifi || got.Closed {
		t.Errorf("got %+v", got)
	}
	if want := []string{"coffee", "Wifi"}; !reflect.DeepEqual(got.Tags, want) {
		t.Errorf("tags: got %v, want %v", got.Tags, want)
	}

	loc.Title = "Blue Bottle Coffee"
	loc.Closed = true
	loc.Tags = []string{"roastery"}
	if err := store.SaveLocation(ctx, loc); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetLocation(ctx, loc.ID)
	if got.Title != "Blue Bottle Coffee" || !got.Closed {
		t.Errorf("update not applied: %+v", got)
	}
	if !reflect.DeepEqual(got.Tags, []string{"roastery"}) {
		t.Errorf("tags not replaced: %v", got.Tags)
	}

	n, err := store.CountLocations(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountLocations() = %d, %v", n, err)
	}

	if err := store.DeleteLocation(ctx, loc.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetLocation(ctx, loc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteLocation(ctx, loc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_SaveValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveLocation(ctx, &models.Location{Title: "  "}); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("empty location title: got %v, want ErrInvalidRecord", err)
	}
	if err := store.SaveHappening(ctx, &models.Happening{Title: "Gig"}); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("missing start time: got %v, want ErrInvalidRecord", err)
	}
}

func TestSQLiteStorage_HappeningCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	venue := &models.Location{Title: "Hall"}
	if err := store.SaveLocation(ctx, venue); err != nil {
		t.Fatal(err)
	}
	start := time.Date(2026, 10, 20, 19, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	end := start.Add(2 * time.Hour)
	h := &models.Happening{
		Title:      "Concert",
		StartTime:  start,
		EndTime:    &end,
		LocationID: venue.ID,
		Tags:       []string{"music"},
	}
	if err := store.SaveHappening(ctx, h); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetHappening(ctx, h.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.StartTime.Equal(start) {
		t.Errorf("start: got %v, want %v", got.StartTime, start)
	}
	if got.StartTime.Location() != time.UTC {
		t.Errorf("start should be read back in UTC, got %v", got.StartTime.Location())
	}
	if got.EndTime == nil || !got.EndTime.Equal(end) {
		t.Errorf("end: got %v, want %v", got.EndTime, end)
	}
	if got.LocationTitle != "Hall" {
		t.Errorf("location title: got %q", got.LocationTitle)
	}
	if !reflect.DeepEqual(got.Tags, []string{"music"}) {
		t.Errorf("tags: got %v", got.Tags)
	}

	if err := store.DeleteHappening(ctx, h.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetHappening(ctx, h.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_MarkDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := &models.Location{Title: "A"}
	b := &models.Location{Title: "B"}
	for _, l := range []*models.Location{a, b} {
		if err := store.SaveLocation(ctx, l); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.MarkDuplicate(ctx, query.KindLocation, b.ID, a.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetLocation(ctx, b.ID)
	if got.DuplicateOfID != a.ID {
		t.Errorf("DuplicateOfID = %q, want %q", got.DuplicateOfID, a.ID)
	}
	if err := store.MarkDuplicate(ctx, query.KindLocation, b.ID, ""); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetLocation(ctx, b.ID)
	if got.DuplicateOfID != "" {
		t.Errorf("flag should be cleared, got %q", got.DuplicateOfID)
	}

	if err := store.MarkDuplicate(ctx, query.KindLocation, a.ID, a.ID); err == nil {
		t.Error("expected error for self duplicate")
	}
	if err := store.MarkDuplicate(ctx, query.KindLocation, "missing", a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.MarkDuplicate(ctx, query.KindSource, a.ID, b.ID); !errors.Is(err, query.ErrUnsupportedEntity) {
		t.Errorf("expected ErrUnsupportedEntity, got %v", err)
	}
}

func TestSQLiteStorage_Sources(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	loc := &models.Location{Title: "Imported"}
	if err := store.SaveLocation(ctx, loc); err != nil {
		t.Fatal(err)
	}
	h := &models.Happening{Title: "Imported gig", StartTime: time.Now()}
	if err := store.SaveHappening(ctx, h); err != nil {
		t.Fatal(err)
	}
	items := []SourceItem{{Kind: query.KindLocation, ID: loc.ID}, {Kind: query.KindHappening, ID: h.ID}}
	if _, err := store.RecordSource(ctx, "/data/venues.yaml", items); err != nil {
		t.Fatal(err)
	}

	sources, err := store.ListSources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 1 || sources[0].Path != "/data/venues.yaml" || sources[0].Items != 2 {
		t.Errorf("ListSources() = %+v", sources)
	}

	// Re-recording without the happening deletes it.
	removed, err := store.RecordSource(ctx, "/data/venues.yaml", items[:1])
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("stale records removed = %d, want 1", removed)
	}
	if _, err := store.GetHappening(ctx, h.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale happening should be gone, got %v", err)
	}

	removed, err = store.DeleteSource(ctx, "/data/venues.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed %d records, want 1", removed)
	}
	if n, _ := store.CountLocations(ctx); n != 0 {
		t.Errorf("locations left: %d", n)
	}
	if n, _ := store.CountHappenings(ctx); n != 0 {
		t.Errorf("happenings left: %d", n)
	}
	sources, _ = store.ListSources(ctx)
	if len(sources) != 0 {
		t.Errorf("source should be gone, got %+v", sources)
	}

	removed, err = store.DeleteSource(ctx, "/never/imported.yaml")
	if err != nil || removed != 0 {
		t.Errorf("unknown source: removed=%d err=%v", removed, err)
	}
}

func TestSQLiteStorage_Columns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cols, err := store.Columns(ctx, query.TableLocations)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cols, query.LocationColumns) {
		t.Errorf("locations columns = %v, want %v", cols, query.LocationColumns)
	}
	cols, err = store.Columns(ctx, query.TableHappenings)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cols, query.HappeningColumns) {
		t.Errorf("happenings columns = %v, want %v", cols, query.HappeningColumns)
	}

	cols, err = store.Columns(ctx, "no_such_table")
	if err != nil || len(cols) != 0 {
		t.Errorf("missing table: cols=%v err=%v", cols, err)
	}
	if _, err := store.Columns(ctx, "locations; DROP TABLE tags"); err == nil {
		t.Error("expected error for invalid table name")
	}
}

func TestSQLiteStorage_ValidateSchema(t *testing.T) {
	store := newTestStore(t)
	d, err := query.NewDispatcher(store)
	if err != nil {
		t.Fatal(err)
	}
	if err := query.ValidateSchema(context.Background(), d, store); err != nil {
		t.Errorf("ValidateSchema() = %v", err)
	}
}
