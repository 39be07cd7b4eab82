package fileid

import (
	"testing"

	"github.com/google/uuid"
)

func TestRecordID(t *testing.T) {
	id1 := RecordID("/seed/venues.yaml", "location", "blue-bottle")
	id2 := RecordID("/seed/venues.yaml", "location", "blue-bottle")
	if id1 != id2 {
		t.Errorf("same input should give same ID: %q vs %q", id1, id2)
	}
	parsed, err := uuid.Parse(id1)
	if err != nil {
		t.Fatalf("ID should be a UUID: %v", err)
	}
	if parsed.Version() != 5 {
		t.Errorf("expected a version 5 UUID, got %d", parsed.Version())
	}
}

func TestRecordID_distinct(t *testing.T) {
	base := RecordID("/seed/venues.yaml", "location", "a")
	tests := []struct {
		name string
		id   string
	}{
		{"different key", RecordID("/seed/venues.yaml", "location", "b")},
		{"different kind", RecordID("/seed/venues.yaml", "happening", "a")},
		{"different file", RecordID("/seed/other.yaml", "location", "a")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.id == base {
				t.Errorf("expected a different ID, got %q", tt.id)
			}
		})
	}
}

func TestRecordID_normalized(t *testing.T) {
	id1 := RecordID("/seed/venues.yaml", "location", "a")
	id2 := RecordID("/seed/./venues.yaml", "location", "a")
	id3 := RecordID("/seed/sub/../venues.yaml", "location", "a")
	if id1 != id2 || id1 != id3 {
		t.Errorf("cleaned paths should match: %q %q %q", id1, id2, id3)
	}
}
