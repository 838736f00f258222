//go:build !linux && !darwin && !freebsd

package storage

import "errors"

func (t *TempDir) FreeBytes() (uint64, error) {
	return 0, errors.New("free space is not supported on this platform")
}
