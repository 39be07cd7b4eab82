package storage

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hyperjump/gatherings/internal/query"
)

// Statement is a compiled query with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdent(s string) bool { return identPattern.MatchString(s) }

var (
	locationSelect  = qualify(query.TableLocations, query.LocationColumns)
	happeningSelect = append(qualify(query.TableHappenings, query.HappeningColumns),
		query.Col(query.TableLocations, "title"))
)

func qualify(table string, names []string) []query.ColumnRef {
	refs := make([]query.ColumnRef, len(names))
	for i, n := range names {
		refs[i] = query.Col(table, n)
	}
	return refs
}

func selectList(cols []query.ColumnRef) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// Compile renders a validated QuerySpec as a SQLite SELECT. Rows are ordered by the spec's
// key, then by base table id so that ties come back in a stable order.
func Compile(spec *query.QuerySpec) (Statement, error) {
	if spec == nil {
		return Statement{}, fmt.Errorf("%w: nil spec", query.ErrInvalidSpec)
	}
	if err := spec.Validate(); err != nil {
		return Statement{}, err
	}

	var cols []query.ColumnRef
	switch spec.Kind {
	case query.KindLocation:
		cols = locationSelect
	case query.KindHappening:
		cols = happeningSelect
	default:
		return Statement{}, &query.UnsupportedEntityError{Kind: spec.Kind}
	}

	c := &compiler{}
	c.b.WriteString("SELECT ")
	for i, col := range cols {
		if i > 0 {
			c.b.WriteString(", ")
		}
		if err := c.column(col); err != nil {
			return Statement{}, err
		}
	}
	if err := c.table(" FROM ", spec.From); err != nil {
		return Statement{}, err
	}

	for _, j := range spec.Joins {
		if j.Type != query.JoinLeftOuter {
			return Statement{}, fmt.Errorf("%w: unsupported join type %q", query.ErrInvalidSpec, j.Type)
		}
		if err := c.table(" "+string(j.Type)+" JOIN ", j.Table); err != nil {
			return Statement{}, err
		}
		c.b.WriteString(" ON ")
		if err := c.predicate(j.On); err != nil {
			return Statement{}, err
		}
	}

	c.b.WriteString(" WHERE ")
	if err := c.predicate(spec.Predicate); err != nil {
		return Statement{}, err
	}

	if len(spec.GroupKeys) > 0 {
		c.b.WriteString(" GROUP BY ")
		for i, key := range spec.GroupKeys {
			if i > 0 {
				c.b.WriteString(", ")
			}
			if err := c.column(key); err != nil {
				return Statement{}, err
			}
		}
	}

	c.b.WriteString(" ORDER BY ")
	if err := c.expr(spec.Order.Expr); err != nil {
		return Statement{}, err
	}
	c.b.WriteString(" " + string(spec.Order.Direction) + ", ")
	if err := c.column(query.Col(spec.From, "id")); err != nil {
		return Statement{}, err
	}
	c.b.WriteString(" ASC")

	if spec.Limited() {
		c.b.WriteString(" LIMIT ?")
		c.args = append(c.args, spec.Limit)
	}

	return Statement{SQL: c.b.String(), Args: c.args}, nil
}

type compiler struct {
	b    strings.Builder
	args []any
}

func (c *compiler) table(prefix, name string) error {
	if !validIdent(name) {
		return fmt.Errorf("%w: invalid table name %q", query.ErrInvalidSpec, name)
	}
	c.b.WriteString(prefix + name)
	return nil
}

func (c *compiler) column(col query.ColumnRef) error {
	if !validIdent(col.Name) || (col.Table != "" && !validIdent(col.Table)) {
		return fmt.Errorf("%w: invalid column %q", query.ErrInvalidSpec, col.String())
	}
	c.b.WriteString(col.String())
	return nil
}

func (c *compiler) expr(e query.Expr) error {
	if !e.Lower {
		return c.column(e.Column)
	}
	c.b.WriteString("LOWER(")
	if err := c.column(e.Column); err != nil {
		return err
	}
	c.b.WriteString(")")
	return nil
}

func (c *compiler) bind(v any) {
	c.b.WriteString("?")
	c.args = append(c.args, bindValue(v))
}

func bindValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return formatTime(val)
	case *time.Time:
		if val == nil {
			return nil
		}
		return formatTime(*val)
	case bool:
		if val {
			return 1
		}
		return 0
	default:
		return v
	}
}

func (c *compiler) group(terms []query.Predicate, sep, empty string) error {
	if len(terms) == 0 {
		c.b.WriteString(empty)
		return nil
	}
	for i, t := range terms {
		if i > 0 {
			c.b.WriteString(sep)
		}
		c.b.WriteString("(")
		if err := c.predicate(t); err != nil {
			return err
		}
		c.b.WriteString(")")
	}
	return nil
}

func (c *compiler) predicate(p query.Predicate) error {
	switch node := p.(type) {
	case query.Conjunction:
		return c.group(node.Terms(), " AND ", "1 = 1")
	case query.Disjunction:
		return c.group(node.Terms(), " OR ", "1 = 0")
	case query.Substring:
		// Both sides are folded so that the match is case-insensitive beyond ASCII.
		e := node.Expr()
		e.Lower = true
		if err := c.expr(e); err != nil {
			return err
		}
		c.b.WriteString(" LIKE LOWER(")
		c.bind(node.Pattern())
		c.b.WriteString(")")
	case query.Equality:
		if err := c.expr(node.Expr()); err != nil {
			return err
		}
		c.b.WriteString(" = ")
		c.bind(node.Value())
	case query.ColumnEquality:
		if err := c.column(node.Left()); err != nil {
			return err
		}
		c.b.WriteString(" = ")
		return c.column(node.Right())
	case query.NullCheck:
		if err := c.column(node.Column()); err != nil {
			return err
		}
		c.b.WriteString(" IS NULL")
	case query.LowerBound:
		if err := c.column(node.Column()); err != nil {
			return err
		}
		c.b.WriteString(" >= ")
		c.bind(node.Value())
	case nil:
		return fmt.Errorf("%w: nil predicate", query.ErrInvalidSpec)
	default:
		return fmt.Errorf("%w: unsupported predicate %T", query.ErrInvalidSpec, p)
	}
	return nil
}
