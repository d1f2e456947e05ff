package engine

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"memtool/process"
)

// Read reads a T at addr.
func Read[T process.Scalar](e *Engine, addr process.ProcessMemoryAddress) (T, error) {
	var zero T
	if err := process.ValidateRange(addr, process.SizeOf[T]()); err != nil {
		return zero, err
	}
	mem, err := e.mem()
	if err != nil {
		return zero, err
	}

	v, err := process.Read[T](mem, addr)
	if err != nil {
		return zero, err
	}
	e.debugln("Read", fmt.Sprintf("%T", v), "at", addr, "=", v)
	return v, nil
}

// Write writes v at addr, relaxing page protection for the duration of the
// write when the pages are not writable.
func Write[T process.Scalar](e *Engine, addr process.ProcessMemoryAddress, v T) error {
	size := process.SizeOf[T]()
	if err := process.ValidateRange(addr, size); err != nil {
		return err
	}
	mem, err := e.mem()
	if err != nil {
		return err
	}

	report, err := process.Write(mem, addr, v)
	e.reportWrite(addr, int(size), report)
	if err != nil {
		return err
	}
	e.debugln("Wrote", fmt.Sprintf("%T", v), v, "at", addr)
	return nil
}

// ReadPath resolves base and offsets as a pointer chain and reads a T at
// the resulting address.
func ReadPath[T process.Scalar](e *Engine, base process.ProcessMemoryAddress, offsets ...uint32) (T, error) {
	var zero T
	addr, err := e.ResolvePointerChain(base, offsets...)
	if err != nil {
		return zero, err
	}
	v, err := Read[T](e, addr)
	if err != nil {
		return zero, fmt.Errorf("read value at end of chain %s: %w", addr, err)
	}
	return v, nil
}

// ReadBuffer reads exactly size bytes at addr.
func (e *Engine) ReadBuffer(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if err := process.ValidateRange(addr, size); err != nil {
		return nil, err
	}
	mem, err := e.mem()
	if err != nil {
		return nil, err
	}

	data, err := process.ReadBytes(mem, addr, size)
	if err != nil {
		return nil, err
	}
	e.debugln("Read", len(data), "bytes at", addr)
	return data, nil
}

// WriteBuffer writes data at addr with the same protection fallback as
// Write.
func (e *Engine) WriteBuffer(addr process.ProcessMemoryAddress, data []byte) error {
	if err := process.ValidateRange(addr, process.ProcessMemorySize(len(data))); err != nil {
		return err
	}
	mem, err := e.mem()
	if err != nil {
		return err
	}

	report, err := process.WriteProtected(mem, addr, data)
	e.reportWrite(addr, len(data), report)
	if err != nil {
		return err
	}
	e.debugln("Wrote", len(data), "bytes at", addr)
	return nil
}

// ReadString reads limit bytes at addr in one call and returns the text up
// to the first NUL, or all limit bytes when there is none. Zero limit means
// DefaultStringMax. The text must be valid UTF-8.
func (e *Engine) ReadString(addr process.ProcessMemoryAddress, limit process.ProcessMemorySize) (string, error) {
	if limit == 0 {
		limit = DefaultStringMax
	}
	data, err := e.ReadBuffer(addr, limit)
	if err != nil {
		return "", err
	}

	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: string at %s", process.ErrDecode, addr)
	}
	return string(data), nil
}

// ReadPointer reads one pointer of the target's width at addr.
func (e *Engine) ReadPointer(addr process.ProcessMemoryAddress) (process.ProcessMemoryAddress, error) {
	if err := process.ValidateRange(addr, e.arch.PointerSize()); err != nil {
		return 0, err
	}
	mem, err := e.mem()
	if err != nil {
		return 0, err
	}

	ptr, err := process.ReadPointer(mem, e.arch, addr)
	if err != nil {
		return 0, err
	}
	e.debugln("Pointer at", addr, "=", ptr)
	return ptr, nil
}
