// Package snapshot reads and writes the persisted stub files, one per
// module. Writes are atomic: content goes to a temporary file in the target
// directory and is renamed into place, so a failed run leaves the previous
// snapshot untouched.
package snapshot

import (
	"os"
	"path/filepath"

	"github.com/basalt-data/stubgen/errors"
)

// Store locates the snapshot files for one extension package.
type Store struct {
	// Dir is the directory holding the stub files.
	Dir string
	// RootModule is the module whose stubs live in __init__.pyi; submodules
	// use <name>.pyi.
	RootModule string
}

// Path returns the snapshot file path for a module.
func (s *Store) Path(module string) string {
	name := module + ".pyi"
	if module == s.RootModule {
		name = "__init__.pyi"
	}
	return filepath.Join(s.Dir, name)
}

// Load reads the prior snapshot for a module. A missing file is not an
// error: it reports found=false, which the merge engine treats as a first
// run.
func (s *Store) Load(module string) (content string, found bool, err error) {
	data, err := os.ReadFile(s.Path(module))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(errors.ErrSnapshotIO, "read %s: %v", s.Path(module), err)
	}
	return string(data), true, nil
}

// Write atomically replaces the snapshot for a module.
func (s *Store) Write(module, content string) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return errors.Wrapf(errors.ErrSnapshotIO, "create %s: %v", s.Dir, err)
	}

	target := s.Path(module)
	tmp, err := os.CreateTemp(s.Dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return errors.Wrapf(errors.ErrSnapshotIO, "temp file for %s: %v", target, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(errors.ErrSnapshotIO, "write %s: %v", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(errors.ErrSnapshotIO, "close %s: %v", tmpName, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(errors.ErrSnapshotIO, "rename %s: %v", target, err)
	}
	return nil
}
