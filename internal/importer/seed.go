package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// seedFile is the decoded content of one seed file.
type seedFile struct {
	Locations  []seedLocation  `yaml:"locations"`
	Happenings []seedHappening `yaml:"happenings"`
}

type seedLocation struct {
	Key         string   `yaml:"key"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Address     string   `yaml:"address"`
	URL         string   `yaml:"url"`
	Wifi        bool     `yaml:"wifi"`
	Closed      bool     `yaml:"closed"`
	Tags        []string `yaml:"tags"`
	DuplicateOf string   `yaml:"duplicate_of"`
}

type seedHappening struct {
	Key         string   `yaml:"key"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	URL         string   `yaml:"url"`
	StartTime   string   `yaml:"start_time"`
	EndTime     string   `yaml:"end_time"`
	Location    string   `yaml:"location"`
	Tags        []string `yaml:"tags"`
	DuplicateOf string   `yaml:"duplicate_of"`
}

// key returns the record's key, falling back to its lower-cased title.
func recordKey(key, title string) string {
	if k := strings.TrimSpace(key); k != "" {
		return k
	}
	return strings.ToLower(strings.TrimSpace(title))
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseSeedTime parses a seed timestamp. Values without a zone are read in loc.
func parseSeedTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// parseSeedBool accepts the usual spreadsheet spellings of true and false. Blank is false.
func parseSeedBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no", "n", "f":
		return false, nil
	case "1", "true", "yes", "y", "t", "x":
		return true, nil
	}
	return strconv.ParseBool(s)
}

// splitTags splits a comma-separated tag cell.
func splitTags(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
