package query

// Options carries the recognized search options. Each policy reads only the fields that apply
// to its kind; the rest are ignored.
type Options struct {
	// Order is the symbolic sort request, e.g. "name", "venue". Empty means the policy default.
	Order string `json:"order,omitempty" yaml:"order,omitempty"`
	// Limit caps the result count. Nil means the default limit.
	Limit *int `json:"limit,omitempty" yaml:"limit,omitempty"`
	// Wifi restricts locations to those advertising public wifi.
	Wifi bool `json:"wifi,omitempty" yaml:"wifi,omitempty"`
	// IncludeClosed keeps locations that are no longer in business.
	IncludeClosed bool `json:"include_closed,omitempty" yaml:"include_closed,omitempty"`
	// SkipOld drops happenings that started before the beginning of yesterday.
	SkipOld bool `json:"skip_old,omitempty" yaml:"skip_old,omitempty"`
}

// Location returns the location view of the options.
func (o Options) Location() LocationOptions {
	return LocationOptions{
		Order:         o.Order,
		Limit:         o.Limit,
		Wifi:          o.Wifi,
		IncludeClosed: o.IncludeClosed,
	}
}

// Happening returns the happening view of the options.
func (o Options) Happening() HappeningOptions {
	return HappeningOptions{
		Order:   o.Order,
		Limit:   o.Limit,
		SkipOld: o.SkipOld,
	}
}

// LocationOptions are the options a location search honours.
type LocationOptions struct {
	Order         string
	Limit         *int
	Wifi          bool
	IncludeClosed bool
}

// Options widens the view back to the shared option set.
func (o LocationOptions) Options() Options {
	return Options{Order: o.Order, Limit: o.Limit, Wifi: o.Wifi, IncludeClosed: o.IncludeClosed}
}

// HappeningOptions are the options a happening search honours.
type HappeningOptions struct {
	Order   string
	Limit   *int
	SkipOld bool
}

// Options widens the view back to the shared option set.
func (o HappeningOptions) Options() Options {
	return Options{Order: o.Order, Limit: o.Limit, SkipOld: o.SkipOld}
}

// SearchQuery is the input of one search.
type SearchQuery struct {
	Text    string
	Options Options
}

// Limit returns a pointer to n, for use in Options.Limit.
func Limit(n int) *int { return &n }
