package query

import "sort"

// Dispatcher routes a search to the policy registered for its entity kind.
type Dispatcher struct {
	policies map[EntityKind]SearchPolicy
}

type dispatcherConfig struct {
	clock        Clock
	defaultLimit int
}

// Option configures a Dispatcher.
type Option func(*dispatcherConfig)

// WithClock sets the time source for recency filters. Default is SystemClock in time.Local.
func WithClock(c Clock) Option {
	return func(cfg *dispatcherConfig) {
		if c != nil {
			cfg.clock = c
		}
	}
}

// WithDefaultLimit sets the cap used when a search gives no limit. Non-positive values keep
// DefaultLimit.
func WithDefaultLimit(n int) Option {
	return func(cfg *dispatcherConfig) {
		if n > 0 {
			cfg.defaultLimit = n
		}
	}
}

// NewDispatcher builds the static policy table for locations and happenings.
func NewDispatcher(scopes Scopes, opts ...Option) (*Dispatcher, error) {
	if scopes == nil {
		return nil, ErrScopesRequired
	}
	cfg := dispatcherConfig{
		clock:        SystemClock{},
		defaultLimit: DefaultLimit,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Dispatcher{
		policies: map[EntityKind]SearchPolicy{
			KindLocation: &locationPolicy{
				tokenizer:    NewWhitespaceTokenizer(),
				scopes:       scopes,
				defaultLimit: cfg.defaultLimit,
			},
			KindHappening: &happeningPolicy{
				tokenizer:    NewWordTokenizer(),
				scopes:       scopes,
				clock:        cfg.clock,
				defaultLimit: cfg.defaultLimit,
			},
		},
	}, nil
}

// Dispatch builds the spec for a search over kind. Kinds without a policy fail with
// *UnsupportedEntityError before anything is built.
func (d *Dispatcher) Dispatch(kind EntityKind, q SearchQuery) (*QuerySpec, error) {
	policy, ok := d.policies[kind]
	if !ok {
		return nil, &UnsupportedEntityError{Kind: kind}
	}
	return policy.Build(q)
}

// SearchLocations builds a location search spec.
func (d *Dispatcher) SearchLocations(text string, opts LocationOptions) (*QuerySpec, error) {
	return d.Dispatch(KindLocation, SearchQuery{Text: text, Options: opts.Options()})
}

// SearchHappenings builds a happening search spec.
func (d *Dispatcher) SearchHappenings(text string, opts HappeningOptions) (*QuerySpec, error) {
	return d.Dispatch(KindHappening, SearchQuery{Text: text, Options: opts.Options()})
}

// Keywords returns the search terms kind's policy extracts from text.
func (d *Dispatcher) Keywords(kind EntityKind, text string) ([]string, error) {
	policy, ok := d.policies[kind]
	if !ok {
		return nil, &UnsupportedEntityError{Kind: kind}
	}
	return policy.Keywords(text), nil
}

// Supports reports whether kind has a search policy.
func (d *Dispatcher) Supports(kind EntityKind) bool {
	_, ok := d.policies[kind]
	return ok
}

// Policies returns the registered policies ordered by kind.
func (d *Dispatcher) Policies() []SearchPolicy {
	out := make([]SearchPolicy, 0, len(d.policies))
	for _, p := range d.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind() < out[j].Kind() })
	return out
}
