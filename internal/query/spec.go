package query

import "fmt"

// JoinType is the SQL join flavour of a JoinClause.
type JoinType string

// JoinLeftOuter keeps rows of the left side that have no match.
const JoinLeftOuter JoinType = "LEFT OUTER"

// JoinClause attaches a table to the spec's base table.
type JoinClause struct {
	Type  JoinType
	Table string
	On    Predicate
	// OneToMany marks joins that can produce several rows per base entity.
	OneToMany bool
}

// Direction is a sort direction.
type Direction string

const (
	// Asc sorts ascending.
	Asc Direction = "ASC"
	// Desc sorts descending.
	Desc Direction = "DESC"
)

// OrderKey is a concrete sort key.
type OrderKey struct {
	Expr      Expr
	Direction Direction
}

// IsZero reports whether the key names no column.
func (o OrderKey) IsZero() bool { return o.Expr.Column.IsZero() }

// String returns an SQL-like rendering of the key.
func (o OrderKey) String() string { return o.Expr.String() + " " + string(o.Direction) }

// QuerySpec is the complete, store-agnostic description of one search.
type QuerySpec struct {
	Kind      EntityKind
	From      string
	Joins     []JoinClause
	Predicate Predicate
	GroupKeys []ColumnRef
	Order     OrderKey
	// Limit caps the row count when positive. Zero or negative means no cap.
	Limit int
}

// Limited reports whether the spec caps its result count.
func (s *QuerySpec) Limited() bool { return s.Limit > 0 }

// HasOneToManyJoin reports whether any join can fan out base rows.
func (s *QuerySpec) HasOneToManyJoin() bool {
	for _, j := range s.Joins {
		if j.OneToMany {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants every spec handed to a store must satisfy.
func (s *QuerySpec) Validate() error {
	if s.From == "" {
		return fmt.Errorf("%w: missing base table", ErrInvalidSpec)
	}
	if s.Predicate == nil {
		return fmt.Errorf("%w: missing predicate", ErrInvalidSpec)
	}
	if s.Order.IsZero() {
		return fmt.Errorf("%w: order is not resolved to a column", ErrInvalidSpec)
	}
	if s.Order.Direction != Asc && s.Order.Direction != Desc {
		return fmt.Errorf("%w: unknown sort direction %q", ErrInvalidSpec, s.Order.Direction)
	}
	if s.HasOneToManyJoin() && len(s.GroupKeys) == 0 {
		return fmt.Errorf("%w: one-to-many join without group keys", ErrInvalidSpec)
	}
	for i, j := range s.Joins {
		if j.Table == "" || j.On == nil {
			return fmt.Errorf("%w: join %d is incomplete", ErrInvalidSpec, i)
		}
	}
	return nil
}
