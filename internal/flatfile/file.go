package flatfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"task-tracker/backend/internal/models"
)

// ReadFile decodes path under a shared lock. A missing file reads as an
// empty task list.
func ReadFile(path string) (*Result, error) {
	unlock, err := lockFile(path, unix.LOCK_SH)
	if err != nil {
		return nil, err
	}
	defer unlock()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Result{Tasks: []models.Task{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Decode(f)
}

// WriteFile replaces path with the encoded tasks. The content is written to
// a temporary file in the same directory and renamed into place while an
// exclusive lock is held, so readers see either the old or the new file.
func WriteFile(path string, tasks []models.Task) error {
	var buf bytes.Buffer
	if err := Encode(&buf, tasks); err != nil {
		return err
	}

	unlock, err := lockFile(path, unix.LOCK_EX)
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func lockFile(path string, how int) (func(), error) {
	lock, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := unix.Flock(int(lock.Fd()), how); err != nil {
		lock.Close()
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	return func() {
		unix.Flock(int(lock.Fd()), unix.LOCK_UN)
		lock.Close()
	}, nil
}
