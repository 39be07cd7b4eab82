package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DatabaseBytes returns the on-disk size of the database including its WAL and shared
// memory files.
func (s *SQLiteStorage) DatabaseBytes() (int64, error) {
	var total int64
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm"} {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// ImportBytes returns the total size of importable files under the given directories.
// Only files whose extension is in exts count; an empty exts counts every file. Missing
// directories contribute nothing.
func ImportBytes(dirs []string, exts []string) (int64, error) {
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = true
	}
	var total int64
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if len(allowed) > 0 && !allowed[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
