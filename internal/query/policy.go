package query

// SearchPolicy builds the QuerySpec for one entity kind.
type SearchPolicy interface {
	Kind() EntityKind
	// Table is the base table the spec selects from.
	Table() string
	// GroupKeys are the columns that collapse fan-out rows to one row per entity.
	GroupKeys() []ColumnRef
	// Keywords returns the terms the policy's tokenizer extracts from text.
	Keywords(text string) []string
	Build(q SearchQuery) (*QuerySpec, error)
}

type locationPolicy struct {
	tokenizer    Tokenizer
	scopes       Scopes
	defaultLimit int
}

func (p *locationPolicy) Kind() EntityKind { return KindLocation }

func (p *locationPolicy) Table() string { return TableLocations }

func (p *locationPolicy) GroupKeys() []ColumnRef {
	return columnRefs(TableLocations, LocationColumns)
}

func (p *locationPolicy) Keywords(text string) []string { return p.tokenizer.Tokenize(text) }

func (p *locationPolicy) Build(q SearchQuery) (*QuerySpec, error) {
	opts := q.Options.Location()
	order, err := resolveLocationOrder(opts.Order)
	if err != nil {
		return nil, err
	}

	keywords := p.tokenizer.Tokenize(q.Text)
	terms := []Predicate{
		p.scopes.NonDuplicates(KindLocation),
		assembleLocationMatch(q.Text, keywords),
	}
	terms = append(terms, locationFilters(p.scopes, opts)...)

	return finish(&QuerySpec{
		Kind:      KindLocation,
		From:      TableLocations,
		Joins:     taggingJoins(KindLocation, TableLocations),
		Predicate: All(terms...),
		GroupKeys: p.GroupKeys(),
		Order:     order,
		Limit:     resolveLimit(opts.Limit, p.defaultLimit),
	})
}

type happeningPolicy struct {
	tokenizer    Tokenizer
	scopes       Scopes
	clock        Clock
	defaultLimit int
}

func (p *happeningPolicy) Kind() EntityKind { return KindHappening }

func (p *happeningPolicy) Table() string { return TableHappenings }

func (p *happeningPolicy) GroupKeys() []ColumnRef {
	keys := columnRefs(TableHappenings, HappeningColumns)
	return append(keys, Col(TableLocations, "id"))
}

func (p *happeningPolicy) Keywords(text string) []string { return p.tokenizer.Tokenize(text) }

func (p *happeningPolicy) Build(q SearchQuery) (*QuerySpec, error) {
	opts := q.Options.Happening()

	keywords := p.tokenizer.Tokenize(q.Text)
	terms := []Predicate{
		p.scopes.NonDuplicates(KindHappening),
		assembleHappeningMatch(keywords),
	}
	terms = append(terms, happeningFilters(p.clock, opts)...)

	joins := taggingJoins(KindHappening, TableHappenings)
	joins = append(joins, locationJoin())

	return finish(&QuerySpec{
		Kind:      KindHappening,
		From:      TableHappenings,
		Joins:     joins,
		Predicate: All(terms...),
		GroupKeys: p.GroupKeys(),
		Order:     resolveHappeningOrder(opts.Order),
		Limit:     resolveLimit(opts.Limit, p.defaultLimit),
	})
}

func finish(spec *QuerySpec) (*QuerySpec, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}
