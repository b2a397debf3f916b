// Package filex holds small filesystem helpers shared by the config and
// history layers.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// AppDirName is the per-user directory that holds config and history.
const AppDirName = "up2git"

// EnsureDir creates dir (and parents) if it does not exist yet.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// UserAppPath joins name onto the per-user application directory, e.g.
// ~/.config/up2git/history.json on Linux. The directory is not created.
func UserAppPath(name string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(base, AppDirName, name), nil
}

// WriteFileAtomic replaces path with data as a single document: the bytes are
// written to a temporary file in the same directory, flushed, closed and
// renamed over path. The temporary file is removed on every failure path, so
// readers see either the old or the new document, never a torn one.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if _, err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}

	return nil
}
