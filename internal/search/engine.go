// Package search runs location and happening searches against the store.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/gatherings/internal/config"
	"github.com/hyperjump/gatherings/internal/metrics"
	"github.com/hyperjump/gatherings/internal/models"
	"github.com/hyperjump/gatherings/internal/query"
	"github.com/hyperjump/gatherings/internal/storage"
)

// ErrInvalidRequest is returned for requests rejected before a spec is built.
var ErrInvalidRequest = errors.New("invalid search request")

// Engine builds query specs with a query.Dispatcher and executes them on the store.
type Engine struct {
	store      storage.Storage
	dispatcher *query.Dispatcher
	logger     *zap.Logger
}

// NewEngine creates a search engine. The dispatcher's clock runs in cfg's time zone and its
// default limit is cfg.DefaultLimit; opts are applied after those and may override them.
func NewEngine(store storage.Storage, cfg *config.SearchConfig, logger *zap.Logger, opts ...query.Option) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	all := append([]query.Option{
		query.WithClock(query.SystemClock{Location: loc}),
		query.WithDefaultLimit(cfg.DefaultLimit),
	}, opts...)
	d, err := query.NewDispatcher(store, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	return &Engine{store: store, dispatcher: d, logger: logger}, nil
}

// ValidateSchema checks the policies' group keys against the store. Run once at startup.
func (e *Engine) ValidateSchema(ctx context.Context) error {
	return query.ValidateSchema(ctx, e.dispatcher, e.store)
}

// Supports reports whether kind can be searched.
func (e *Engine) Supports(kind query.EntityKind) bool {
	return e.dispatcher.Supports(kind)
}

// Search runs one search of kind and returns its records.
func (e *Engine) Search(ctx context.Context, kind query.EntityKind, req *models.SearchRequest) (resp *models.SearchResponse, err error) {
	startTime := time.Now()
	label := e.kindLabel(kind)
	defer func() {
		metrics.SearchesTotal.WithLabelValues(label, statusOf(err)).Inc()
		metrics.SearchDuration.WithLabelValues(label).Observe(time.Since(startTime).Seconds())
		if err == nil {
			metrics.SearchResults.WithLabelValues(label).Observe(float64(resp.Total))
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	spec, err := e.dispatcher.Dispatch(kind, req.SearchQuery())
	if err != nil {
		return nil, err
	}
	keywords, _ := e.dispatcher.Keywords(kind, req.Query)

	resp = &models.SearchResponse{
		Kind:     string(kind),
		Query:    req.Query,
		Keywords: keywords,
	}
	switch kind {
	case query.KindLocation:
		resp.Locations, err = e.store.SearchLocations(ctx, spec)
		resp.Total = len(resp.Locations)
	case query.KindHappening:
		resp.Happenings, err = e.store.SearchHappenings(ctx, spec)
		resp.Total = len(resp.Happenings)
	default:
		err = &query.UnsupportedEntityError{Kind: kind}
	}
	if err != nil {
		e.logger.Error("search failed", zap.String("kind", string(kind)), zap.String("query", req.Query), zap.Error(err))
		return nil, err
	}
	resp.QueryTime = time.Since(startTime).Milliseconds()

	e.logger.Debug("search",
		zap.String("kind", string(kind)),
		zap.String("query", req.Query),
		zap.Strings("keywords", keywords),
		zap.String("order", spec.Order.String()),
		zap.Int("limit", spec.Limit),
		zap.Int("results", resp.Total),
		zap.Int64("ms", resp.QueryTime),
	)
	return resp, nil
}

// Explain returns the SQL a search compiles to without running it.
func (e *Engine) Explain(kind query.EntityKind, req *models.SearchRequest) (*models.ExplainResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	spec, err := e.dispatcher.Dispatch(kind, req.SearchQuery())
	if err != nil {
		return nil, err
	}
	stmt, err := storage.Compile(spec)
	if err != nil {
		return nil, err
	}
	args := stmt.Args
	if args == nil {
		args = []any{}
	}
	return &models.ExplainResponse{Kind: string(kind), SQL: stmt.SQL, Args: args}, nil
}

func (e *Engine) kindLabel(kind query.EntityKind) string {
	if e.dispatcher.Supports(kind) {
		return string(kind)
	}
	return "unsupported"
}

// IsClientError reports whether err was caused by the request rather than the store.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, query.ErrInvalidOrder) ||
		errors.Is(err, query.ErrUnsupportedEntity)
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsClientError(err):
		return "invalid"
	default:
		return "error"
	}
}
