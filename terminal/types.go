package terminal

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"memtool/engine"
	"memtool/process"
)

// valueKind reads and writes one scalar type on an Engine, converting from
// and to text.
type valueKind struct {
	name  string
	size  process.ProcessMemorySize
	read  func(e *engine.Engine, addr process.ProcessMemoryAddress) (string, error)
	write func(e *engine.Engine, addr process.ProcessMemoryAddress, text string) error
	parse func(text string) ([]byte, error)
}

func kindOf[T process.Scalar](name string, parse func(string) (T, error), format func(T) string) valueKind {
	return valueKind{
		name: name,
		size: process.SizeOf[T](),
		read: func(e *engine.Engine, addr process.ProcessMemoryAddress) (string, error) {
			v, err := engine.Read[T](e, addr)
			if err != nil {
				return "", err
			}
			return format(v), nil
		},
		write: func(e *engine.Engine, addr process.ProcessMemoryAddress, text string) error {
			v, err := parse(text)
			if err != nil {
				return err
			}
			return engine.Write(e, addr, v)
		},
		parse: func(text string) ([]byte, error) {
			v, err := parse(text)
			if err != nil {
				return nil, err
			}
			return process.Bytes(v), nil
		},
	}
}

func parseUnsigned[T ~uint8 | ~uint16 | ~uint32 | ~uint64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseUint(strings.TrimSpace(s), 0, bits)
		if err != nil {
			return 0, fmt.Errorf("invalid u%d value %q", bits, s)
		}
		return T(v), nil
	}
}

func parseSigned[T ~int8 | ~int16 | ~int32 | ~int64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseInt(strings.TrimSpace(s), 0, bits)
		if err != nil {
			return 0, fmt.Errorf("invalid i%d value %q", bits, s)
		}
		return T(v), nil
	}
}

func parseFloat[T ~float32 | ~float64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), bits)
		if err != nil {
			return 0, fmt.Errorf("invalid f%d value %q", bits, s)
		}
		return T(v), nil
	}
}

func formatUnsigned[T ~uint8 | ~uint16 | ~uint32 | ~uint64](v T) string {
	return fmt.Sprintf("%d (0x%X)", uint64(v), uint64(v))
}

func formatSigned[T ~int8 | ~int16 | ~int32 | ~int64](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

func formatFloat[T ~float32 | ~float64](v T) string {
	var bits int
	switch any(v).(type) {
	case float32:
		bits = 32
	default:
		bits = 64
	}
	return strconv.FormatFloat(float64(v), 'g', -1, bits)
}

var valueKinds = map[string]valueKind{
	"u8":  kindOf("u8", parseUnsigned[uint8](8), formatUnsigned[uint8]),
	"i8":  kindOf("i8", parseSigned[int8](8), formatSigned[int8]),
	"u16": kindOf("u16", parseUnsigned[uint16](16), formatUnsigned[uint16]),
	"i16": kindOf("i16", parseSigned[int16](16), formatSigned[int16]),
	"u32": kindOf("u32", parseUnsigned[uint32](32), formatUnsigned[uint32]),
	"i32": kindOf("i32", parseSigned[int32](32), formatSigned[int32]),
	"u64": kindOf("u64", parseUnsigned[uint64](64), formatUnsigned[uint64]),
	"i64": kindOf("i64", parseSigned[int64](64), formatSigned[int64]),
	"f32": kindOf("f32", parseFloat[float32](32), formatFloat[float32]),
	"f64": kindOf("f64", parseFloat[float64](64), formatFloat[float64]),
}

var kindAliases = map[string]string{
	"byte":    "u8",
	"uint8":   "u8",
	"int8":    "i8",
	"word":    "u16",
	"uint16":  "u16",
	"short":   "i16",
	"int16":   "i16",
	"dword":   "u32",
	"uint32":  "u32",
	"int":     "i32",
	"int32":   "i32",
	"qword":   "u64",
	"uint64":  "u64",
	"long":    "i64",
	"int64":   "i64",
	"float":   "f32",
	"float32": "f32",
	"double":  "f64",
	"float64": "f64",
}

// lookupKind resolves a type name. "ptr" is the target's pointer width.
func lookupKind(name string, arch process.Architecture) (valueKind, error) {
	name = strings.ToLower(name)
	if name == "ptr" || name == "pointer" {
		if arch == process.ArchitectureX86 {
			name = "u32"
		} else {
			name = "u64"
		}
	}
	if alias, ok := kindAliases[name]; ok {
		name = alias
	}
	k, ok := valueKinds[name]
	if !ok {
		return valueKind{}, fmt.Errorf("unknown type %q, expected one of %s", name, strings.Join(kindNames(), ", "))
	}
	return k, nil
}

func kindNames() []string {
	names := make([]string, 0, len(valueKinds)+1)
	for name := range valueKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return append(names, "ptr")
}
