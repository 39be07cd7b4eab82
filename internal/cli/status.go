package cli

import (
	"fmt"
	"io"
	"strings"
)

// StatusConfig is the configuration summary reported by status.
type StatusConfig struct {
	DatabasePath      string   `json:"database_path,omitempty"`
	DefaultLimit      int      `json:"default_limit,omitempty"`
	Timezone          string   `json:"timezone,omitempty"`
	ImportDirectories []string `json:"import_directories,omitempty"`
	ImportExtensions  []string `json:"import_extensions,omitempty"`
	MetricsEnabled    bool     `json:"metrics_enabled"`
}

// Status is the shape of GET /api/v1/status.
type Status struct {
	Locations     int64         `json:"locations"`
	Happenings    int64         `json:"happenings"`
	DatabaseBytes *int64        `json:"database_bytes,omitempty"`
	ImportBytes   *int64        `json:"import_bytes,omitempty"`
	Config        *StatusConfig `json:"config,omitempty"`
}

// WriteStatus writes s as text or JSON. Compact is treated as text.
func WriteStatus(w io.Writer, s *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "locations:          %d   # stored locations, duplicates included\n", s.Locations)
	fmt.Fprintf(&b, "happenings:         %d   # stored happenings, duplicates included\n", s.Happenings)
	if s.DatabaseBytes != nil {
		fmt.Fprintf(&b, "database_bytes:     %d   # SQLite file with WAL\n", *s.DatabaseBytes)
	}
	if s.ImportBytes != nil {
		fmt.Fprintf(&b, "import_bytes:       %d   # seed files under import directories\n", *s.ImportBytes)
	}
	if c := s.Config; c != nil {
		b.WriteString("\n# configuration\n")
		if c.DatabasePath != "" {
			fmt.Fprintf(&b, "database_path:      %s\n", c.DatabasePath)
		}
		if c.DefaultLimit > 0 {
			fmt.Fprintf(&b, "default_limit:      %d\n", c.DefaultLimit)
		}
		if c.Timezone != "" {
			fmt.Fprintf(&b, "timezone:           %s\n", c.Timezone)
		}
		if len(c.ImportDirectories) > 0 {
			fmt.Fprintf(&b, "import_directories: %s\n", strings.Join(c.ImportDirectories, ", "))
		}
		if len(c.ImportExtensions) > 0 {
			fmt.Fprintf(&b, "import_extensions:  %s\n", strings.Join(c.ImportExtensions, ", "))
		}
		fmt.Fprintf(&b, "metrics_enabled:    %t\n", c.MetricsEnabled)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
