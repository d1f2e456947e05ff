//go:build windows

package engine

import (
	"memtool/process"
	"memtool/process_windows"
)

// DefaultSystem returns the live backend of the host.
func DefaultSystem() (process.System, error) {
	return process_windows.System{}, nil
}
