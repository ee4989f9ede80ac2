package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileName   = ".gamesync.lock"
	lockRetryDelay = 250 * time.Millisecond
)

// ErrInstallLocked is returned when another process holds the install path lock
// and ctx ends before it is released.
var ErrInstallLocked = errors.New("install path is locked by another process")

// lockInstallPath takes the exclusive lock of installPath, waiting for other
// runs on the same path to finish. The returned func releases it.
func lockInstallPath(ctx context.Context, installPath string) (func() error, error) {
	if err := os.MkdirAll(installPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create install path: %w", err)
	}

	lock := flock.New(filepath.Join(installPath, lockFileName))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrInstallLocked, installPath)
		}
		return nil, fmt.Errorf("failed to lock install path: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrInstallLocked, installPath)
	}
	return lock.Unlock, nil
}
