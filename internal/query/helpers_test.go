package query

import (
	"context"
	"fmt"
	"time"
)

type fakeScopes struct{}

func (fakeScopes) NonDuplicates(kind EntityKind) Predicate {
	table := TableLocations
	if kind == KindHappening {
		table = TableHappenings
	}
	return IsNull(Col(table, "duplicate_of_id"))
}

func (fakeScopes) InBusiness() Predicate {
	return Eq(Plain(Col(TableLocations, "closed")), false)
}

func (fakeScopes) HasAmenity(a Amenity) Predicate {
	return Eq(Plain(Col(TableLocations, string(a))), true)
}

type fakeDescriber map[string][]string

func (f fakeDescriber) Columns(_ context.Context, table string) ([]string, error) {
	cols, ok := f[table]
	if !ok {
		return nil, fmt.Errorf("no such table: %s", table)
	}
	return cols, nil
}

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

func newTestDispatcher(opts ...Option) *Dispatcher {
	d, err := NewDispatcher(fakeScopes{}, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// leaves returns the non-compound predicates of p in depth-first order.
func leaves(p Predicate) []Predicate {
	var out []Predicate
	Walk(p, func(n Predicate) bool {
		switch n.(type) {
		case Conjunction, Disjunction:
			return true
		}
		out = append(out, n)
		return false
	})
	return out
}

// matchClause returns the text/tag disjunction of a spec built by a policy.
func matchClause(spec *QuerySpec) Disjunction {
	for _, t := range spec.Predicate.(Conjunction).Terms() {
		if d, ok := t.(Disjunction); ok {
			return d
		}
	}
	return Disjunction{}
}

func tagValues(p Predicate) []string {
	var out []string
	for _, l := range leaves(p) {
		if eq, ok := l.(Equality); ok && eq.Expr().Column == Col(TableTags, "name") {
			out = append(out, eq.Value().(string))
		}
	}
	return out
}

func substrings(p Predicate) []Substring {
	var out []Substring
	for _, l := range leaves(p) {
		if s, ok := l.(Substring); ok {
			out = append(out, s)
		}
	}
	return out
}
