package process

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// OpcodeNOP is the x86 single-byte no-operation instruction.
const OpcodeNOP byte = 0x90

// ParseHexPatch decodes instruction bytes written as hex pairs. Whitespace
// anywhere in s is ignored; any other non-hex character or an odd number of
// digits is rejected with ErrInvalidHexPatch.
func ParseHexPatch(s string) ([]byte, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if digits == "" {
		return nil, fmt.Errorf("%w: no hex digits", ErrInvalidHexPatch)
	}
	if len(digits)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of hex digits (%d)", ErrInvalidHexPatch, len(digits))
	}

	data, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHexPatch, err)
	}
	return data, nil
}

// FormatHex renders data as upper-case byte pairs separated by single
// spaces, e.g. "48 8B 05".
func FormatHex(data []byte) string {
	return fmt.Sprintf("% X", data)
}

// NopSled returns n NOP opcodes.
func NopSled(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative NOP count %d", ErrInvalidHexPatch, n)
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = OpcodeNOP
	}
	return out, nil
}
