//go:build !unix

package pagestore

import "context"

// lockFile is a no-op where flock is unavailable; concurrent first runs
// from several processes are then not serialized.
func lockFile(context.Context, string) (func() error, error) {
	return func() error { return nil }, nil
}
