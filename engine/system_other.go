//go:build !windows

package engine

import (
	"fmt"
	"runtime"

	"memtool/process"
)

// DefaultSystem returns the live backend of the host.
func DefaultSystem() (process.System, error) {
	return nil, fmt.Errorf("%w: no live backend for %s", process.ErrUnsupportedPlatform, runtime.GOOS)
}
