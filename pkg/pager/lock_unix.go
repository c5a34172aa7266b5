//go:build !windows

package pager

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile acquires a non-blocking exclusive advisory lock on the given
// file, enforcing at most one writer per file (read-only opens skip the
// lock, see Options.ReadOnly). Returns ErrDatabaseLocked if another open
// file handle already holds the lock.
func lockFile(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		if err == unix.EWOULDBLOCK {
			return ErrDatabaseLocked
		}
		return err
	}
	return nil
}

// unlockFile releases the lock acquired by lockFile.
func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
