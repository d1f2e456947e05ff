package engine

import (
	"fmt"

	"memtool/process"
)

// ReadInstructions returns n bytes at addr as upper-case hex pairs separated
// by single spaces, e.g. "48 8B 05".
func (e *Engine) ReadInstructions(addr process.ProcessMemoryAddress, n process.ProcessMemorySize) (string, error) {
	data, err := e.ReadBuffer(addr, n)
	if err != nil {
		return "", err
	}
	return process.FormatHex(data), nil
}

// WriteInstructions decodes hex (whitespace is ignored) and writes the bytes
// at addr. Code pages are usually not writable, so this normally goes
// through the protection fallback.
func (e *Engine) WriteInstructions(addr process.ProcessMemoryAddress, hex string) error {
	data, err := process.ParseHexPatch(hex)
	if err != nil {
		return err
	}
	return e.WriteBuffer(addr, data)
}

// NopFill overwrites n bytes at addr with NOP opcodes. The range is
// validated before the sled is built.
func (e *Engine) NopFill(addr process.ProcessMemoryAddress, n process.ProcessMemorySize) error {
	if err := process.ValidateRange(addr, n); err != nil {
		return err
	}
	if uint64(n) > uint64(maxInt) {
		return fmt.Errorf("%w: NOP count %d too large", process.ErrInvalidAddress, uint64(n))
	}
	sled, err := process.NopSled(int(n))
	if err != nil {
		return err
	}
	return e.WriteBuffer(addr, sled)
}

const maxInt = int(^uint(0) >> 1)
