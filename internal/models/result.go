package models

// SearchResponse is the response for a search request. Exactly one of Locations and
// Happenings is populated, according to Kind.
type SearchResponse struct {
	Kind       string       `json:"kind"`
	Query      string       `json:"query"`
	Keywords   []string     `json:"keywords"`
	Locations  []*Location  `json:"locations,omitempty"`
	Happenings []*Happening `json:"happenings,omitempty"`
	Total      int          `json:"total"`
	QueryTime  int64        `json:"query_time_ms"`
}

// ExplainResponse shows the SQL a search compiles to without running it.
type ExplainResponse struct {
	Kind string `json:"kind"`
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}
