// Package query builds store-agnostic search specifications for locations and happenings.
//
// A search runs as a pure pipeline: the query text is tokenized per entity policy, keywords are
// assembled into a disjunctive text/tag match, business filters narrow the match, the symbolic
// order is resolved to a concrete sort key, rows fanned out by the tag join are grouped back to
// one row per entity, and the result is capped. The output is a QuerySpec; rendering it to SQL
// and executing it is the store's job.
//
// Basic usage:
//
//	d, err := query.NewDispatcher(store)
//	spec, err := d.Dispatch(query.KindLocation, query.SearchQuery{
//		Text:    "cafe",
//		Options: query.Options{Wifi: true},
//	})
//
// Dispatcher values hold no per-call state and are safe for concurrent use.
package query
