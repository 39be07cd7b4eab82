package query

// DefaultLimit is the result cap applied when a search does not ask for one.
const DefaultLimit = 50

// resolveLimit passes explicit limits through untouched, including non-positive ones, which
// stores treat as "no cap".
func resolveLimit(limit *int, fallback int) int {
	if limit == nil {
		return fallback
	}
	return *limit
}
