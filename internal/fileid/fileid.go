// Package fileid derives deterministic record IDs for records imported from seed files.
package fileid

import (
	"path/filepath"

	"github.com/google/uuid"
)

// Namespace is the UUID namespace of imported record IDs.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/hyperjump/gatherings/import"))

// RecordID returns a stable ID for the record with the given kind and key inside the file at
// absolutePath. The same file, kind and key always yield the same ID, so re-importing a file
// updates its records instead of duplicating them.
func RecordID(absolutePath, kind, key string) string {
	name := filepath.Clean(absolutePath) + "#" + kind + "/" + key
	return uuid.NewSHA1(Namespace, []byte(name)).String()
}
