package models

import (
	"fmt"
	"strings"

	"github.com/hyperjump/gatherings/internal/query"
)

// SearchRequest is a search as received over HTTP or from the CLI. Unknown JSON keys are
// ignored.
type SearchRequest struct {
	Query string `json:"query"`
	query.Options

	// camelCase spellings accepted from older clients.
	IncludeClosedCamel *bool `json:"includeClosed,omitempty"`
	SkipOldCamel       *bool `json:"skipOld,omitempty"`
}

// Validate normalizes the request. Empty queries are valid; they still match on the empty
// substring.
func (r *SearchRequest) Validate() error {
	if r.IncludeClosedCamel != nil {
		r.IncludeClosed = *r.IncludeClosedCamel
	}
	if r.SkipOldCamel != nil {
		r.SkipOld = *r.SkipOldCamel
	}
	r.Order = strings.TrimSpace(r.Order)
	if strings.ContainsAny(r.Order, "\x00\n") {
		return fmt.Errorf("order contains control characters")
	}
	return nil
}

// SearchQuery converts the request into the core query value.
func (r *SearchRequest) SearchQuery() query.SearchQuery {
	return query.SearchQuery{Text: r.Query, Options: r.Options}
}
