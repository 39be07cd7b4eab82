package query

import (
	"fmt"
	"strings"
)

// ColumnRef names a column of a store table.
type ColumnRef struct {
	Table string
	Name  string
}

// Col returns a reference to table.name.
func Col(table, name string) ColumnRef {
	return ColumnRef{Table: table, Name: name}
}

// String returns the qualified column name.
func (c ColumnRef) String() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

// IsZero reports whether the reference names nothing.
func (c ColumnRef) IsZero() bool { return c.Name == "" }

// Expr is a column, optionally folded to lower case before comparison.
type Expr struct {
	Column ColumnRef
	Lower  bool
}

// Plain returns the column as-is.
func Plain(c ColumnRef) Expr { return Expr{Column: c} }

// Lower returns the lower-cased column.
func Lower(c ColumnRef) Expr { return Expr{Column: c, Lower: true} }

// String returns an SQL-like rendering of the expression.
func (e Expr) String() string {
	if e.Lower {
		return "LOWER(" + e.Column.String() + ")"
	}
	return e.Column.String()
}

// Predicate is an immutable boolean condition over store columns.
// The set of implementations is closed; stores render them with a type switch.
type Predicate interface {
	fmt.Stringer
	predicate()
}

// Conjunction holds when every term holds.
type Conjunction struct {
	terms []Predicate
}

// All joins terms with AND. Nil terms are skipped.
func All(terms ...Predicate) Conjunction {
	return Conjunction{terms: compact(terms)}
}

// Terms returns a copy of the joined predicates.
func (c Conjunction) Terms() []Predicate { return append([]Predicate(nil), c.terms...) }

func (c Conjunction) String() string { return join(c.terms, " AND ", "TRUE") }

func (Conjunction) predicate() {}

// Disjunction holds when any term holds.
type Disjunction struct {
	terms []Predicate
}

// Any joins terms with OR. Nil terms are skipped.
func Any(terms ...Predicate) Disjunction {
	return Disjunction{terms: compact(terms)}
}

// Terms returns a copy of the joined predicates.
func (d Disjunction) Terms() []Predicate { return append([]Predicate(nil), d.terms...) }

func (d Disjunction) String() string { return join(d.terms, " OR ", "FALSE") }

func (Disjunction) predicate() {}

// Substring holds when the expression contains term.
type Substring struct {
	expr Expr
	term string
}

// Contains matches expr against the pattern %term%. The term is not escaped.
func Contains(expr Expr, term string) Substring {
	return Substring{expr: expr, term: term}
}

// Expr returns the matched expression.
func (s Substring) Expr() Expr { return s.expr }

// Term returns the searched-for text.
func (s Substring) Term() string { return s.term }

// Pattern returns the LIKE pattern.
func (s Substring) Pattern() string { return "%" + s.term + "%" }

func (s Substring) String() string { return fmt.Sprintf("%s LIKE %q", s.expr, s.Pattern()) }

func (Substring) predicate() {}

// Equality holds when the expression equals a bound value.
type Equality struct {
	expr  Expr
	value any
}

// Eq matches expr = value.
func Eq(expr Expr, value any) Equality {
	return Equality{expr: expr, value: value}
}

// Expr returns the compared expression.
func (e Equality) Expr() Expr { return e.expr }

// Value returns the bound value.
func (e Equality) Value() any { return e.value }

func (e Equality) String() string { return fmt.Sprintf("%s = %#v", e.expr, e.value) }

func (Equality) predicate() {}

// ColumnEquality holds when two columns are equal. Used for join conditions.
type ColumnEquality struct {
	left  ColumnRef
	right ColumnRef
}

// ColEq matches left = right.
func ColEq(left, right ColumnRef) ColumnEquality {
	return ColumnEquality{left: left, right: right}
}

// Left returns the left column.
func (c ColumnEquality) Left() ColumnRef { return c.left }

// Right returns the right column.
func (c ColumnEquality) Right() ColumnRef { return c.right }

func (c ColumnEquality) String() string { return c.left.String() + " = " + c.right.String() }

func (ColumnEquality) predicate() {}

// NullCheck holds when the column is NULL.
type NullCheck struct {
	column ColumnRef
}

// IsNull matches column IS NULL.
func IsNull(column ColumnRef) NullCheck { return NullCheck{column: column} }

// Column returns the checked column.
func (n NullCheck) Column() ColumnRef { return n.column }

func (n NullCheck) String() string { return n.column.String() + " IS NULL" }

func (NullCheck) predicate() {}

// LowerBound holds when the column is greater than or equal to a bound value.
type LowerBound struct {
	column ColumnRef
	value  any
}

// AtLeast matches column >= value.
func AtLeast(column ColumnRef, value any) LowerBound {
	return LowerBound{column: column, value: value}
}

// Column returns the bounded column.
func (l LowerBound) Column() ColumnRef { return l.column }

// Value returns the inclusive bound.
func (l LowerBound) Value() any { return l.value }

func (l LowerBound) String() string { return fmt.Sprintf("%s >= %v", l.column, l.value) }

func (LowerBound) predicate() {}

// Walk calls fn for p and, depth-first, for every nested term. Walk stops descending into a
// node when fn returns false.
func Walk(p Predicate, fn func(Predicate) bool) {
	if p == nil || !fn(p) {
		return
	}
	switch node := p.(type) {
	case Conjunction:
		for _, t := range node.terms {
			Walk(t, fn)
		}
	case Disjunction:
		for _, t := range node.terms {
			Walk(t, fn)
		}
	}
}

func compact(terms []Predicate) []Predicate {
	out := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

func join(terms []Predicate, sep, empty string) string {
	if len(terms) == 0 {
		return empty
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = "(" + t.String() + ")"
	}
	return strings.Join(parts, sep)
}
