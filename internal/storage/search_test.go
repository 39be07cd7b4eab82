package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/gatherings/internal/models"
	"github.com/hyperjump/gatherings/internal/query"
)

var searchNow = time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store      *SQLiteStorage
	dispatcher *query.Dispatcher
	loc        map[string]*models.Location
	hap        map[string]*models.Happening
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := newTestStore(t)
	d, err := query.NewDispatcher(store, query.WithClock(query.ClockFunc(func() time.Time { return searchNow })))
	require.NoError(t, err)

	f := &fixture{store: store, dispatcher: d, loc: map[string]*models.Location{}, hap: map[string]*models.Happening{}}
	locations := []*models.Location{
		{ID: "blue", Title: "Blue Bottle Cafe", Description: "Coffee and pastries", Wifi: true, Tags: []string{"coffee", "wifi", "pastries"}},
		{ID: "apex", Title: "Apex Bar", Description: "Cocktails", Closed: true, Tags: []string{"drinks"}},
		{ID: "dupe", Title: "Blue Bottle Cafe (dupe)", Tags: []string{"coffee"}},
		{ID: "zebra", Title: "zebra Cafe"},
	}
	for _, l := range locations {
		require.NoError(t, store.SaveLocation(ctx, l))
		f.loc[l.ID] = l
	}
	require.NoError(t, store.MarkDuplicate(ctx, query.KindLocation, "dupe", "blue"))

	happenings := []*models.Happening{
		{ID: "jazz", Title: "Jazz Night", Description: "Live music", URL: "https://example.com/jazz",
			StartTime: time.Date(2026, 10, 20, 19, 0, 0, 0, time.UTC), LocationID: "blue", Tags: []string{"music", "jazz"}},
		{ID: "poetry", Title: "Poetry Reading", StartTime: time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC),
			LocationID: "zebra", Tags: []string{"books"}},
		{ID: "jam", Title: "Old Jazz Jam", StartTime: time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC), Tags: []string{"jazz"}},
		{ID: "jazz-copy", Title: "Jazz Night", StartTime: time.Date(2026, 10, 20, 19, 0, 0, 0, time.UTC),
			DuplicateOfID: "jazz", Tags: []string{"jazz"}},
	}
	for _, h := range happenings {
		require.NoError(t, store.SaveHappening(ctx, h))
		f.hap[h.ID] = h
	}
	return f
}

func (f *fixture) locations(t *testing.T, text string, opts query.LocationOptions) []string {
	t.Helper()
	spec, err := f.dispatcher.SearchLocations(text, opts)
	require.NoError(t, err)
	got, err := f.store.SearchLocations(context.Background(), spec)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, l := range got {
		ids[i] = l.ID
	}
	return ids
}

func (f *fixture) happenings(t *testing.T, text string, opts query.HappeningOptions) []string {
	t.Helper()
	spec, err := f.dispatcher.SearchHappenings(text, opts)
	require.NoError(t, err)
	got, err := f.store.SearchHappenings(context.Background(), spec)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, h := range got {
		ids[i] = h.ID
	}
	return ids
}

func TestSearchLocations(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		text string
		opts query.LocationOptions
		want []string
	}{
		{"substring in title, one row per location", "cafe", query.LocationOptions{}, []string{"blue", "zebra"}},
		{"tag match is case-insensitive", "COFFEE", query.LocationOptions{}, []string{"blue"}},
		{"closed excluded by default", "drinks", query.LocationOptions{}, []string{}},
		{"include closed", "drinks", query.LocationOptions{IncludeClosed: true}, []string{"apex"}},
		{"wifi only", "cafe", query.LocationOptions{Wifi: true}, []string{"blue"}},
		{"any keyword may hit a tag", "pastries nothing", query.LocationOptions{}, []string{"blue"}},
		{"empty query matches every open original", "", query.LocationOptions{}, []string{"blue", "zebra"}},
		{"empty query with closed", "", query.LocationOptions{IncludeClosed: true}, []string{"apex", "blue", "zebra"}},
		{"limit caps results", "cafe", query.LocationOptions{Limit: query.Limit(1)}, []string{"blue"}},
		{"zero limit is uncapped", "cafe", query.LocationOptions{Limit: query.Limit(0)}, []string{"blue", "zebra"}},
		{"no match", "karaoke", query.LocationOptions{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.locations(t, tt.text, tt.opts))
		})
	}
}

func TestSearchLocations_UnicodeCaseFolding(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	d, err := query.NewDispatcher(store)
	require.NoError(t, err)
	require.NoError(t, store.SaveLocation(ctx, &models.Location{ID: "eclair", Title: "CAFÉ ÉCLAIR", Tags: []string{"ÉTÉ"}}))
	require.NoError(t, store.SaveLocation(ctx, &models.Location{ID: "other", Title: "Tea House"}))

	for _, text := range []string{"café", "Éclair", "été", "ÉTÉ"} {
		t.Run(text, func(t *testing.T) {
			spec, err := d.SearchLocations(text, query.LocationOptions{})
			require.NoError(t, err)
			got, err := store.SearchLocations(ctx, spec)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "eclair", got[0].ID)
		})
	}
}

func TestLowerFunction(t *testing.T) {
	store := newTestStore(t)
	var text, null sql.NullString
	var num int64
	err := store.db.QueryRow(`SELECT LOWER('ÀÉÎ Straße'), LOWER(NULL), LOWER(42)`).Scan(&text, &null, &num)
	require.NoError(t, err)
	assert.Equal(t, "àéî straße", text.String)
	assert.False(t, null.Valid)
	assert.Equal(t, int64(42), num)
}

func TestSearchLocations_Records(t *testing.T) {
	f := newFixture(t)
	spec, err := f.dispatcher.SearchLocations("coffee", query.LocationOptions{})
	require.NoError(t, err)

	got, err := f.store.SearchLocations(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Blue Bottle Cafe", got[0].Title)
	assert.Equal(t, []string{"coffee", "pastries", "wifi"}, got[0].Tags)
	assert.True(t, got[0].Wifi)
}

func TestSearchHappenings(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		text string
		opts query.HappeningOptions
		want []string
	}{
		{"default order is newest start first", "jazz", query.HappeningOptions{}, []string{"jazz", "jam"}},
		{"skip old keeps yesterday onwards", "", query.HappeningOptions{SkipOld: true}, []string{"jazz", "poetry"}},
		{"skip old drops past happenings", "jazz", query.HappeningOptions{SkipOld: true}, []string{"jazz"}},
		{"order by title", "jazz", query.HappeningOptions{Order: "title"}, []string{"jazz", "jam"}},
		{"order by venue puts missing venues first", "jazz", query.HappeningOptions{Order: "venue"}, []string{"jam", "jazz"}},
		{"unknown order falls back to start time", "jazz", query.HappeningOptions{Order: "bogus"}, []string{"jazz", "jam"}},
		{"tag match", "Books", query.HappeningOptions{}, []string{"poetry"}},
		{"url match", "EXAMPLE.com", query.HappeningOptions{}, []string{"jazz"}},
		{"punctuation ignored", "live!", query.HappeningOptions{}, []string{"jazz"}},
		{"empty query matches all originals", "", query.HappeningOptions{}, []string{"jazz", "poetry", "jam"}},
		{"limit", "", query.HappeningOptions{Limit: query.Limit(2)}, []string{"jazz", "poetry"}},
		{"negative limit is uncapped", "", query.HappeningOptions{Limit: query.Limit(-1)}, []string{"jazz", "poetry", "jam"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.happenings(t, tt.text, tt.opts))
		})
	}
}

func TestSearchHappenings_Records(t *testing.T) {
	f := newFixture(t)
	spec, err := f.dispatcher.SearchHappenings("music", query.HappeningOptions{})
	require.NoError(t, err)

	got, err := f.store.SearchHappenings(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Blue Bottle Cafe", got[0].LocationTitle)
	assert.Equal(t, []string{"jazz", "music"}, got[0].Tags)
	assert.True(t, got[0].StartTime.Equal(f.hap["jazz"].StartTime))
}

func TestSearch_KindMismatch(t *testing.T) {
	f := newFixture(t)
	spec, err := f.dispatcher.SearchLocations("cafe", query.LocationOptions{})
	require.NoError(t, err)

	_, err = f.store.SearchHappenings(context.Background(), spec)
	assert.True(t, errors.Is(err, query.ErrInvalidSpec))
}
