package process

import (
	"unsafe"
)

// Scalar is the set of fixed-size values the typed accessor can move.
type Scalar interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~int8 | ~int16 | ~int32 | ~int64 |
		~float32 | ~float64
}

// SizeOf returns the in-memory size of T.
func SizeOf[T Scalar]() ProcessMemorySize {
	var t T
	return ProcessMemorySize(unsafe.Sizeof(t))
}

// ReadExact fills buf from addr with one OS read. Anything other than a
// successful call that transferred exactly len(buf) bytes is an error.
func ReadExact(mem RawMemory, addr ProcessMemoryAddress, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	n, err := mem.ReadProcessMemory(addr, buf)
	if err != nil {
		return &OSError{Op: "ReadProcessMemory", Addr: addr, Size: ProcessMemorySize(len(buf)), Err: err}
	}
	if n != len(buf) {
		return &ShortTransferError{Op: "ReadProcessMemory", Addr: addr, Requested: len(buf), Transferred: n}
	}
	return nil
}

// ReadBytes reads exactly size bytes at addr.
func ReadBytes(mem RawMemory, addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, size)
	if err := ReadExact(mem, addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Read reads a T at addr. The target is assumed to share the host's byte
// order, which holds for x86 and x64.
func Read[T Scalar](mem RawMemory, addr ProcessMemoryAddress) (T, error) {
	var t T
	buf := make([]byte, unsafe.Sizeof(t))
	if err := ReadExact(mem, addr, buf); err != nil {
		return t, err
	}
	copyTo(&t, buf)
	return t, nil
}

// Write writes v at addr through WriteProtected, so read-only and code
// pages are handled the same way as raw buffer writes.
func Write[T Scalar](mem RawMemory, addr ProcessMemoryAddress, v T) (WriteReport, error) {
	return WriteProtected(mem, addr, Bytes(v))
}

// Bytes returns a copy of the in-memory representation of v.
func Bytes[T Scalar](v T) []byte {
	size := int(unsafe.Sizeof(v))
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&v)), size))
	return out
}

// copyTo copies bytes to *T
func copyTo[T Scalar](dst *T, src []byte) {
	size := int(unsafe.Sizeof(*dst))
	if len(src) < size {
		return
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(dst)), size), src)
}
