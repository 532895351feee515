package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LockStaleAfter is the age after which a leftover lock file is ignored.
const LockStaleAfter = 10 * time.Minute

// Lock creates the lock file next to the snapshot. It fails while another
// process holds a fresh lock.
func (m *Manager) Lock(ctx context.Context) error {
	lockPath := m.lockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	if info, err := os.Stat(lockPath); err == nil {
		if m.now().Sub(info.ModTime()) <= LockStaleAfter {
			return fmt.Errorf("snapshot is locked by another process (lock file: %s). "+
				"If this is an error, remove the lock file manually", lockPath)
		}
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock file: %w", err)
		}
	}

	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), m.now().UTC().Format(time.RFC3339))
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("snapshot is locked by another process (lock file: %s)", lockPath)
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	return nil
}

// Unlock removes the lock file.
func (m *Manager) Unlock(ctx context.Context) error {
	if err := os.Remove(m.lockPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (m *Manager) lockPath() string {
	return m.path + ".lock"
}
