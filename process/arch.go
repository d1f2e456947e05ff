package process

import (
	"fmt"
	"strings"
)

// Architecture is the pointer width of the target process.
type Architecture uint8

const (
	// ArchitectureAuto asks the engine to detect the target's bitness.
	ArchitectureAuto Architecture = 0
	ArchitectureX86  Architecture = 32
	ArchitectureX64  Architecture = 64
)

// PointerSize is the number of bytes read when dereferencing a pointer in
// the target. It is zero for ArchitectureAuto.
func (a Architecture) PointerSize() ProcessMemorySize {
	switch a {
	case ArchitectureX86:
		return 4
	case ArchitectureX64:
		return 8
	}
	return 0
}

// IsValid reports whether a is a concrete architecture.
func (a Architecture) IsValid() bool {
	return a == ArchitectureX86 || a == ArchitectureX64
}

func (a Architecture) String() string {
	switch a {
	case ArchitectureAuto:
		return "auto"
	case ArchitectureX86:
		return "x86"
	case ArchitectureX64:
		return "x64"
	}
	return fmt.Sprintf("Architecture(%d)", uint8(a))
}

// ParseArchitecture accepts the usual spellings: "x86", "386", "32",
// "x64", "amd64", "64" and "auto" (or an empty string).
func ParseArchitecture(s string) (Architecture, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ArchitectureAuto, nil
	case "x86", "386", "i386", "32", "win32":
		return ArchitectureX86, nil
	case "x64", "amd64", "x86_64", "64", "win64":
		return ArchitectureX64, nil
	}
	return ArchitectureAuto, fmt.Errorf("unknown architecture %q", s)
}
