package process

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

func (pma ProcessMemoryAddress) String() string {
	return pma.ToString()
}

// Add returns pma+off with the same wrapping semantics as the target's
// pointer arithmetic.
func (pma ProcessMemoryAddress) Add(off uint64) ProcessMemoryAddress {
	return pma + ProcessMemoryAddress(off)
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// ValidateAddress rejects addresses the host cannot pass to the OS without
// truncation.
func ValidateAddress(addr ProcessMemoryAddress) error {
	if uint64(addr) > uint64(^uintptr(0)) {
		return fmt.Errorf("%w: %s does not fit the host address width", ErrInvalidAddress, addr)
	}
	return nil
}

// ValidateRange validates addr and makes sure [addr, addr+size) does not
// wrap around the address space.
func ValidateRange(addr ProcessMemoryAddress, size ProcessMemorySize) error {
	if err := ValidateAddress(addr); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	last := uint64(addr) + uint64(size) - 1
	if last < uint64(addr) || last > uint64(^uintptr(0)) {
		return fmt.Errorf("%w: range %s+%d overflows the address space", ErrInvalidAddress, addr, size)
	}
	return nil
}

// AddressFromInt64 converts a signed value, rejecting negatives.
func AddressFromInt64(v int64) (ProcessMemoryAddress, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: negative address %d", ErrInvalidAddress, v)
	}
	return ProcessMemoryAddress(v), nil
}

// AddressFromBig converts an arbitrary precision value, rejecting negatives
// and anything that does not fit in 64 bits.
func AddressFromBig(v *big.Int) (ProcessMemoryAddress, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: nil address", ErrInvalidAddress)
	}
	if v.Sign() < 0 {
		return 0, fmt.Errorf("%w: negative address %s", ErrInvalidAddress, v)
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit in 64 bits", ErrInvalidAddress, v)
	}
	return ProcessMemoryAddress(v.Uint64()), nil
}

// ParseAddress parses a hexadecimal ("0x" prefixed) or decimal address.
// Underscores are accepted as digit separators.
func ParseAddress(s string) (ProcessMemoryAddress, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: negative address %q", ErrInvalidAddress, s)
	}
	s = strings.TrimPrefix(s, "+")

	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		// bare hex without prefix, as printed by most tools
		if hv, herr := strconv.ParseUint(s, 16, 64); herr == nil {
			return ProcessMemoryAddress(hv), nil
		}
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	return ProcessMemoryAddress(v), nil
}

// ParseOffset parses a chain offset. Offsets are unsigned 32-bit values.
func ParseOffset(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		if hv, herr := strconv.ParseUint(s, 16, 32); herr == nil {
			return uint32(hv), nil
		}
		return 0, fmt.Errorf("invalid offset %q: %w", s, err)
	}
	return uint32(v), nil
}
