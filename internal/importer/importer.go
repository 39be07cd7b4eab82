// Package importer loads locations and happenings from YAML and Excel seed files into the
// store.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/gatherings/internal/fileid"
	"github.com/hyperjump/gatherings/internal/metrics"
	"github.com/hyperjump/gatherings/internal/models"
	"github.com/hyperjump/gatherings/internal/query"
	"github.com/hyperjump/gatherings/internal/storage"
)

// DefaultExtensions are the seed formats the importer understands.
var DefaultExtensions = []string{".yaml", ".yml", ".xlsx"}

// Result summarizes one imported file.
type Result struct {
	Path       string `json:"path"`
	Locations  int    `json:"locations"`
	Happenings int    `json:"happenings"`
	// Removed counts records the file produced before but no longer lists.
	Removed int `json:"removed"`
}

// Importer writes seed file records to the store and tracks which file produced them.
type Importer struct {
	storage    storage.Storage
	extensions []string
	location   *time.Location
	logger     *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(i *Importer) { i.logger = l }
}

// WithExtensions restricts imports to the given extensions. Only extensions the importer
// can decode are kept.
func WithExtensions(exts []string) Option {
	return func(i *Importer) {
		var kept []string
		for _, e := range exts {
			e = strings.ToLower(e)
			if extensionAllowed(e, DefaultExtensions) {
				kept = append(kept, e)
			}
		}
		i.extensions = kept
	}
}

// WithTimeLocation sets the zone for seed timestamps that carry none. Default is time.Local.
func WithTimeLocation(loc *time.Location) Option {
	return func(i *Importer) {
		if loc != nil {
			i.location = loc
		}
	}
}

// New creates an importer writing to store.
func New(store storage.Storage, opts ...Option) *Importer {
	i := &Importer{
		storage:    store,
		extensions: DefaultExtensions,
		location:   time.Local,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Extensions returns the extensions the importer accepts.
func (i *Importer) Extensions() []string {
	return append([]string(nil), i.extensions...)
}

// Supports reports whether path has an accepted extension.
func (i *Importer) Supports(path string) bool {
	return extensionAllowed(filepath.Ext(path), i.extensions)
}

// ImportFile decodes the seed file at path and saves its records. Record IDs derive from the
// file's absolute path and each record's key, so importing the same file again updates its
// records; records the file no longer lists are deleted.
func (i *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if !i.Supports(absPath) {
		return nil, fmt.Errorf("extension %q not in allowed list", filepath.Ext(absPath))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var seed *seedFile
	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".xlsx":
		seed, err = decodeExcel(content)
	default:
		seed, err = decodeYAML(content)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}

	locations, happenings, err := i.records(absPath, seed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}

	items := make([]storage.SourceItem, 0, len(locations)+len(happenings))
	for _, loc := range locations {
		if err := i.storage.SaveLocation(ctx, loc); err != nil {
			return nil, i.partialImport(ctx, absPath, items, err)
		}
		items = append(items, storage.SourceItem{Kind: query.KindLocation, ID: loc.ID})
	}
	for _, h := range happenings {
		if err := i.storage.SaveHappening(ctx, h); err != nil {
			return nil, i.partialImport(ctx, absPath, items, err)
		}
		items = append(items, storage.SourceItem{Kind: query.KindHappening, ID: h.ID})
	}
	removed, err := i.storage.RecordSource(ctx, absPath, items)
	if err != nil {
		return nil, err
	}

	metrics.ImportedRecordsTotal.WithLabelValues(string(query.KindLocation)).Add(float64(len(locations)))
	metrics.ImportedRecordsTotal.WithLabelValues(string(query.KindHappening)).Add(float64(len(happenings)))
	i.logger.Debug("importer file imported",
		zap.String("path", absPath),
		zap.Int("locations", len(locations)),
		zap.Int("happenings", len(happenings)),
		zap.Int("removed", removed),
	)
	return &Result{Path: absPath, Locations: len(locations), Happenings: len(happenings), Removed: removed}, nil
}

// partialImport handles a save that failed after earlier records of the file were stored. The
// stored ones are added to the file's source so that RemoveFile still finds them; records the
// file listed before are kept until an import succeeds.
func (i *Importer) partialImport(ctx context.Context, absPath string, saved []storage.SourceItem, cause error) error {
	if len(saved) > 0 {
		if err := i.storage.AddSourceItems(ctx, absPath, saved); err != nil {
			i.logger.Warn("importer failed to track partial import",
				zap.String("path", absPath), zap.Int("records", len(saved)), zap.Error(err))
		}
	}
	return fmt.Errorf("%s: %w", absPath, cause)
}

// records converts decoded seed entries to models with deterministic IDs and resolves
// location and duplicate references by key. A happening location that matches no key in the
// file is taken as a stored location ID.
func (i *Importer) records(absPath string, seed *seedFile) ([]*models.Location, []*models.Happening, error) {
	locKind, hapKind := string(query.KindLocation), string(query.KindHappening)

	locIDs := make(map[string]string, len(seed.Locations))
	for n, l := range seed.Locations {
		key := recordKey(l.Key, l.Title)
		if key == "" {
			return nil, nil, fmt.Errorf("location %d has neither key nor title", n+1)
		}
		if _, dup := locIDs[key]; dup {
			return nil, nil, fmt.Errorf("duplicate location key %q", key)
		}
		locIDs[key] = fileid.RecordID(absPath, locKind, key)
	}
	hapIDs := make(map[string]string, len(seed.Happenings))
	for n, h := range seed.Happenings {
		key := recordKey(h.Key, h.Title)
		if key == "" {
			return nil, nil, fmt.Errorf("happening %d has neither key nor title", n+1)
		}
		if _, dup := hapIDs[key]; dup {
			return nil, nil, fmt.Errorf("duplicate happening key %q", key)
		}
		hapIDs[key] = fileid.RecordID(absPath, hapKind, key)
	}

	locations := make([]*models.Location, 0, len(seed.Locations))
	for _, l := range seed.Locations {
		loc := &models.Location{
			ID:          locIDs[recordKey(l.Key, l.Title)],
			Title:       strings.TrimSpace(l.Title),
			Description: l.Description,
			Address:     l.Address,
			URL:         l.URL,
			Wifi:        l.Wifi,
			Closed:      l.Closed,
			Tags:        l.Tags,
		}
		if l.DuplicateOf != "" {
			id, ok := locIDs[l.DuplicateOf]
			if !ok {
				return nil, nil, fmt.Errorf("location %q duplicates unknown key %q", loc.Title, l.DuplicateOf)
			}
			loc.DuplicateOfID = id
		}
		locations = append(locations, loc)
	}

	happenings := make([]*models.Happening, 0, len(seed.Happenings))
	for _, h := range seed.Happenings {
		start, err := parseSeedTime(h.StartTime, i.location)
		if err != nil {
			return nil, nil, fmt.Errorf("happening %q start_time: %w", h.Title, err)
		}
		hap := &models.Happening{
			ID:          hapIDs[recordKey(h.Key, h.Title)],
			Title:       strings.TrimSpace(h.Title),
			Description: h.Description,
			URL:         h.URL,
			StartTime:   start,
			Tags:        h.Tags,
		}
		if strings.TrimSpace(h.EndTime) != "" {
			end, err := parseSeedTime(h.EndTime, i.location)
			if err != nil {
				return nil, nil, fmt.Errorf("happening %q end_time: %w", h.Title, err)
			}
			hap.EndTime = &end
		}
		if ref := strings.TrimSpace(h.Location); ref != "" {
			if id, ok := locIDs[ref]; ok {
				hap.LocationID = id
			} else {
				hap.LocationID = ref
			}
		}
		if h.DuplicateOf != "" {
			id, ok := hapIDs[h.DuplicateOf]
			if !ok {
				return nil, nil, fmt.Errorf("happening %q duplicates unknown key %q", hap.Title, h.DuplicateOf)
			}
			hap.DuplicateOfID = id
		}
		happenings = append(happenings, hap)
	}
	return locations, happenings, nil
}

// ImportDirectory imports every accepted file under dir, descending into subdirectories when
// recursive is set. Returns the results so far and the first error encountered, if any.
func (i *Importer) ImportDirectory(ctx context.Context, dir string, recursive bool) ([]*Result, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}

	var results []*Result
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != absDir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !i.Supports(path) {
			return nil
		}
		// Resolve symlinks so we only import regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		res, importErr := i.ImportFile(ctx, path)
		if importErr != nil {
			return importErr
		}
		results = append(results, res)
		return nil
	})
	return results, err
}

// RemoveFile deletes every record imported from path and returns how many were removed.
func (i *Importer) RemoveFile(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	n, err := i.storage.DeleteSource(ctx, absPath)
	if err != nil {
		return n, err
	}
	i.logger.Debug("importer source removed", zap.String("path", absPath), zap.Int("records", n))
	return n, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
