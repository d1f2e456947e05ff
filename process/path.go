package process

import (
	"fmt"
)

// ReadPath reads a value of type T at the end of a pointer path.
// It starts at base, adds the first offset, reads a pointer, adds the next offset, reads a pointer, etc.
// The last offset is added to the final pointer, and then T is read from that address.
// If offsets is empty, it reads T from base.
func ReadPath[T Scalar](mem RawMemory, arch Architecture, base ProcessMemoryAddress, offsets ...uint32) (T, error) {
	finalAddr, err := ResolvePointerChain(mem, arch, base, offsets...)
	if err != nil {
		var zero T
		return zero, err
	}

	val, err := Read[T](mem, finalAddr)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to read final value at %s: %w", finalAddr, err)
	}

	return val, nil
}
