package query

import "time"

// Amenity is a feature a location can advertise.
type Amenity string

// AmenityWifi is public wifi.
const AmenityWifi Amenity = "wifi"

// Scopes supplies the store-defined predicates the core narrows with but does not compute.
type Scopes interface {
	// NonDuplicates excludes records flagged as duplicates of another record.
	NonDuplicates(kind EntityKind) Predicate
	// InBusiness keeps only locations that are currently operating.
	InBusiness() Predicate
	// HasAmenity keeps only locations advertising the amenity.
	HasAmenity(a Amenity) Predicate
}

// Clock is the source of the current time for recency filters.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in a fixed time zone. A nil Location means time.Local.
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in the clock's zone.
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// StartOfYesterday returns midnight at the beginning of the day before now, in now's zone.
func StartOfYesterday(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-1, 0, 0, 0, 0, now.Location())
}

func locationFilters(scopes Scopes, opts LocationOptions) []Predicate {
	var out []Predicate
	if !opts.IncludeClosed {
		out = append(out, scopes.InBusiness())
	}
	if opts.Wifi {
		out = append(out, scopes.HasAmenity(AmenityWifi))
	}
	return out
}

func happeningFilters(clock Clock, opts HappeningOptions) []Predicate {
	var out []Predicate
	if opts.SkipOld {
		out = append(out, AtLeast(happeningStart, StartOfYesterday(clock.Now()).UTC()))
	}
	return out
}
