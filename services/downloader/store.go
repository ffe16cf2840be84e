package downloader

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store persists one artifact file per tariff identifier. Presence of
// the file is the only durable "already done" marker, there is no
// separate manifest.
type Store struct {
	dir string
}

func NewStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Store{}, fmt.Errorf("create output directory: %w", err)
	}
	return Store{dir: dir}, nil
}

func (s Store) Path(id int) string {
	return filepath.Join(s.dir, fmt.Sprintf("Tariff_%d.xml", id))
}

func (s Store) Exists(id int) bool {
	_, err := os.Stat(s.Path(id))
	return err == nil
}

// Write stages the artifact in a temp file and renames it into place,
// so a cancelled or crashed run never leaves a truncated artifact and
// concurrent writers for the same id race benignly.
func (s Store) Write(id int, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, fmt.Sprintf(".Tariff_%d-*", id))
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.Path(id)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
