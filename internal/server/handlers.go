package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/gatherings/internal/models"
	"github.com/hyperjump/gatherings/internal/query"
	"github.com/hyperjump/gatherings/internal/search"
	"github.com/hyperjump/gatherings/internal/storage"
)

func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.search(w, r, &req)
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	req, err := searchRequestFromQuery(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.search(w, r, req)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, req *models.SearchRequest) {
	kind := query.ParseEntityKind(chi.URLParam(r, "kind"))
	s.logger.Debug("search request", zap.String("kind", string(kind)), zap.String("query", req.Query), zap.String("order", req.Order))
	response, err := s.engine.Search(r.Context(), kind, req)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	req, err := searchRequestFromQuery(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind := query.ParseEntityKind(chi.URLParam(r, "kind"))
	response, err := s.engine.Explain(kind, req)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

// searchRequestFromQuery reads search options from URL parameters. Both snake_case and
// camelCase flag names are accepted.
func searchRequestFromQuery(v url.Values) (*models.SearchRequest, error) {
	req := &models.SearchRequest{Query: v.Get("q")}
	req.Order = v.Get("order")
	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid limit %q", raw)
		}
		req.Limit = query.Limit(n)
	}
	var err error
	if req.Wifi, err = boolParam(v, "wifi"); err != nil {
		return nil, err
	}
	if req.IncludeClosed, err = boolParam(v, "include_closed", "includeClosed"); err != nil {
		return nil, err
	}
	if req.SkipOld, err = boolParam(v, "skip_old", "skipOld"); err != nil {
		return nil, err
	}
	return req, nil
}

// boolParam returns the first present parameter among names. A bare flag (?wifi) is true.
func boolParam(v url.Values, names ...string) (bool, error) {
	for _, name := range names {
		if _, ok := v[name]; !ok {
			continue
		}
		raw := v.Get(name)
		if raw == "" {
			return true, nil
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return false, fmt.Errorf("invalid %s %q", name, raw)
		}
		return b, nil
	}
	return false, nil
}

func (s *Server) handleSaveLocation(w http.ResponseWriter, r *http.Request) {
	var loc models.Location
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("save location request", zap.String("id", loc.ID), zap.String("title", loc.Title))
	if err := s.storage.SaveLocation(r.Context(), &loc); err != nil {
		s.respondErr(w, err)
		return
	}
	saved, err := s.storage.GetLocation(r.Context(), loc.ID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := s.storage.GetLocation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, loc)
}

func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete location request", zap.String("id", id))
	if err := s.storage.DeleteLocation(r.Context(), id); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleSaveHappening(w http.ResponseWriter, r *http.Request) {
	var h models.Happening
	if err := json.NewDecoder(r.Body).Decode(&h); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("save happening request", zap.String("id", h.ID), zap.String("title", h.Title))
	if err := s.storage.SaveHappening(r.Context(), &h); err != nil {
		s.respondErr(w, err)
		return
	}
	saved, err := s.storage.GetHappening(r.Context(), h.ID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetHappening(w http.ResponseWriter, r *http.Request) {
	h, err := s.storage.GetHappening(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, h)
}

func (s *Server) handleDeleteHappening(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete happening request", zap.String("id", id))
	if err := s.storage.DeleteHappening(r.Context(), id); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

type duplicateRequest struct {
	// Of is the ID of the original record. Empty clears the duplicate flag.
	Of string `json:"of"`
}

// handleMarkDuplicate returns the duplicate-flag handler for kind.
func (s *Server) handleMarkDuplicate(kind query.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req duplicateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		id := chi.URLParam(r, "id")
		s.logger.Debug("mark duplicate request", zap.String("kind", string(kind)), zap.String("id", id), zap.String("of", req.Of))
		if err := s.storage.MarkDuplicate(r.Context(), kind, id, req.Of); err != nil {
			s.respondErr(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "duplicate_of": req.Of})
	}
}

func (s *Server) handleSourcesList(w http.ResponseWriter, r *http.Request) {
	sources, err := s.storage.ListSources(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if sources == nil {
		sources = []storage.Source{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sources": sources})
}

type sourceRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleSourcesImport(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		s.respondError(w, http.StatusNotImplemented, "import not enabled")
		return
	}
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "file not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("import source request", zap.String("path", abs))
	res, err := s.importer.ImportFile(r.Context(), abs)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidRecord) {
			s.respondErr(w, err)
			return
		}
		// Decode and reference errors are the file's fault.
		s.logger.Warn("import failed", zap.String("path", abs), zap.Error(err))
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleSourcesRemove(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		s.respondError(w, http.StatusNotImplemented, "import not enabled")
		return
	}
	path, ok := s.pathParam(w, r)
	if !ok {
		return
	}
	s.logger.Debug("remove source request", zap.String("path", path))
	n, err := s.importer.RemoveFile(r.Context(), path)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"path": path, "removed": n})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// databaseSizer is implemented by stores that live in files.
type databaseSizer interface {
	DatabaseBytes() (int64, error)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locCount, err := s.storage.CountLocations(ctx)
	if err != nil {
		s.logger.Error("status: count locations failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	hapCount, err := s.storage.CountHappenings(ctx)
	if err != nil {
		s.logger.Error("status: count happenings failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"locations":  locCount,
		"happenings": hapCount,
	}
	if sizer, ok := s.storage.(databaseSizer); ok {
		if n, err := sizer.DatabaseBytes(); err == nil {
			resp["database_bytes"] = n
		}
	}

	configInfo := map[string]interface{}{
		"database_path":     s.config.Storage.DatabasePath,
		"default_limit":     s.config.Search.DefaultLimit,
		"timezone":          s.config.Search.Timezone,
		"import_extensions": s.config.Import.Extensions,
		"metrics_enabled":   s.config.Metrics.EnabledOrDefault(),
	}
	dirs := s.config.Import.Directories
	if s.watch != nil {
		dirs = s.watch.Directories()
	}
	configInfo["import_directories"] = dirs
	if n, err := storage.ImportBytes(dirs, s.config.Import.Extensions); err == nil {
		resp["import_bytes"] = n
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	abs, ok := s.pathParam(w, r)
	if !ok {
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// pathParam reads an absolute path from ?path= or a JSON body {"path": ...}. It writes the
// error response itself and returns false when no usable path was given.
func (s *Server) pathParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := r.URL.Query().Get("path")
	if path == "" {
		var body sourceRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return "", false
	}
	return abs, true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, query.ErrUnsupportedEntity), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case search.IsClientError(err), errors.Is(err, storage.ErrInvalidRecord):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
