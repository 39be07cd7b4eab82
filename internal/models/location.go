// Package models defines the records the store keeps and the shapes of search requests and
// responses.
package models

import "time"

// Location is a venue where happenings take place.
type Location struct {
	ID          string   `json:"id" yaml:"id,omitempty"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Address     string   `json:"address,omitempty" yaml:"address,omitempty"`
	URL         string   `json:"url,omitempty" yaml:"url,omitempty"`
	Wifi        bool     `json:"wifi" yaml:"wifi,omitempty"`
	Closed      bool     `json:"closed" yaml:"closed,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	// DuplicateOfID points at the record this one duplicates; empty for originals.
	DuplicateOfID string    `json:"duplicate_of_id,omitempty" yaml:"duplicate_of_id,omitempty"`
	CreatedAt     time.Time `json:"created_at" yaml:"-"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"-"`
}

// Happening is a scheduled event, optionally held at a Location.
type Happening struct {
	ID          string     `json:"id" yaml:"id,omitempty"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string     `json:"url,omitempty" yaml:"url,omitempty"`
	StartTime   time.Time  `json:"start_time" yaml:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	LocationID  string     `json:"location_id,omitempty" yaml:"location_id,omitempty"`
	// LocationTitle is filled on search results when the happening has a location.
	LocationTitle string    `json:"location_title,omitempty" yaml:"-"`
	Tags          []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	DuplicateOfID string    `json:"duplicate_of_id,omitempty" yaml:"duplicate_of_id,omitempty"`
	CreatedAt     time.Time `json:"created_at" yaml:"-"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"-"`
}
