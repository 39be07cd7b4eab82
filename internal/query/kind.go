package query

import "strings"

// EntityKind identifies a searchable record type.
type EntityKind string

const (
	// KindLocation is a venue: a place where happenings take place.
	KindLocation EntityKind = "location"
	// KindHappening is a scheduled event, optionally linked to a location.
	KindHappening EntityKind = "happening"
	// KindSource is an import source. It is stored but never searched.
	KindSource EntityKind = "source"
)

// ParseEntityKind maps user input (singular, plural or legacy venue/event names) to a kind.
// Unknown names are returned as-is so that dispatch reports them as unsupported.
func ParseEntityKind(name string) EntityKind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "location", "locations", "venue", "venues":
		return KindLocation
	case "happening", "happenings", "event", "events":
		return KindHappening
	case "source", "sources":
		return KindSource
	default:
		return EntityKind(name)
	}
}

// String returns the kind name.
func (k EntityKind) String() string { return string(k) }

// TaggableType is the value stored in taggings.taggable_type for this kind.
func (k EntityKind) TaggableType() string {
	switch k {
	case KindLocation:
		return "Location"
	case KindHappening:
		return "Happening"
	case KindSource:
		return "Source"
	default:
		return ""
	}
}
