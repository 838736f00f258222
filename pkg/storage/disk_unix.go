//go:build linux || darwin || freebsd

package storage

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FreeBytes reports the space available to unprivileged users on the temp dir's filesystem.
func (t *TempDir) FreeBytes() (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(t.path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", t.path, err)
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
