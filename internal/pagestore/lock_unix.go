//go:build unix

package pagestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const lockPollInterval = 10 * time.Millisecond

// lockFile takes an exclusive flock on path, creating the file if needed.
// It polls until ctx is done. The returned func releases the lock.
//
// The lock only serializes Open across processes. Regular reads and writes
// rely on SQLite locking.
func lockFile(ctx context.Context, path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	fd := int(f.Fd())

	for {
		err = unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}

		if errors.Is(err, unix.EINTR) {
			continue
		}

		if !errors.Is(err, unix.EWOULDBLOCK) {
			_ = f.Close()

			return nil, fmt.Errorf("flock %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			_ = f.Close()

			return nil, fmt.Errorf("flock %s: %w", path, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}

	release := func() error {
		unlockErr := unix.Flock(fd, unix.LOCK_UN)
		if unlockErr != nil {
			unlockErr = fmt.Errorf("unlock %s: %w", path, unlockErr)
		}

		closeErr := f.Close()
		if closeErr != nil {
			closeErr = fmt.Errorf("close lock file: %w", closeErr)
		}

		return errors.Join(unlockErr, closeErr)
	}

	return release, nil
}
