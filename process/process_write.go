package process

import (
	"fmt"

	"memtool/process/memory_map"
)

// FallbackProtection is applied to the target range when a direct write
// fails. It grants execute as well so that patched code stays runnable while
// the range is relaxed.
const FallbackProtection = memory_map.PageExecuteReadWrite

// WriteReport describes how a write completed.
type WriteReport struct {
	// Forced is set when the direct write failed and the range was
	// temporarily relaxed to FallbackProtection.
	Forced bool

	// Previous is the protection captured before relaxing. Only meaningful
	// when Forced is set.
	Previous memory_map.Protection

	// RestoreErr is the failure to put Previous back. It never becomes the
	// result of the write; the pages may remain at FallbackProtection.
	RestoreErr error
}

// writeOnce performs one OS write and maps a short count to an error.
func writeOnce(mem RawMemory, addr ProcessMemoryAddress, data []byte) error {
	n, err := mem.WriteProcessMemory(addr, data)
	if err != nil {
		return &OSError{Op: "WriteProcessMemory", Addr: addr, Size: ProcessMemorySize(len(data)), Err: err}
	}
	if n != len(data) {
		return &ShortTransferError{Op: "WriteProcessMemory", Addr: addr, Requested: len(data), Transferred: n}
	}
	return nil
}

// WriteProtected writes data at addr. When the direct write fails (or moves
// fewer bytes than requested) the pages covering the range are switched to
// FallbackProtection, the write is retried once, and the previous protection
// is restored whether or not the retry succeeded.
//
// A failure to restore is reported in WriteReport.RestoreErr and is
// otherwise ignored, so the protection of the range is only guaranteed to be
// unchanged when RestoreErr is nil.
func WriteProtected(mem RawMemory, addr ProcessMemoryAddress, data []byte) (WriteReport, error) {
	var report WriteReport
	if len(data) == 0 {
		return report, nil
	}

	directErr := writeOnce(mem, addr, data)
	if directErr == nil {
		return report, nil
	}

	size := ProcessMemorySize(len(data))
	previous, err := mem.VirtualProtect(addr, size, FallbackProtection)
	if err != nil {
		return report, fmt.Errorf("%w at %s (%d bytes): %v (direct write: %w)",
			ErrProtectionChange, addr, len(data), err, directErr)
	}
	report.Forced = true
	report.Previous = previous

	retryErr := writeOnce(mem, addr, data)

	if _, err := mem.VirtualProtect(addr, size, previous); err != nil {
		report.RestoreErr = &OSError{Op: "VirtualProtectEx", Addr: addr, Size: size, Err: err}
	}

	if retryErr != nil {
		return report, fmt.Errorf("%w: %w", ErrForcedWrite, retryErr)
	}
	return report, nil
}
