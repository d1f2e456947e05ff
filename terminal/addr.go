package terminal

import (
	"errors"
	"fmt"
	"strings"

	"memtool/process"
)

// ModuleResolver turns a module name into its base address.
type ModuleResolver interface {
	ModuleStart(name string) (process.ProcessMemoryAddress, error)
}

// ParseAddressExpr evaluates expressions like "game.exe+0x10", "0x7FF6A000"
// or "client.dll+0x100-8". Terms are joined with + and -. A term that parses
// as a number (decimal, 0x hex, or bare hex when it has a-f digits) is a
// number; any other term is a module name resolved through modules.
func ParseAddressExpr(expr string, modules ModuleResolver) (process.ProcessMemoryAddress, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("%w: empty address", process.ErrInvalidAddress)
	}
	if expr[0] == '-' {
		return 0, fmt.Errorf("%w: negative address %q", process.ErrInvalidAddress, expr)
	}

	terms, ops := splitTerms(expr)

	var result process.ProcessMemoryAddress
	for i, term := range terms {
		v, err := evalTerm(term, modules)
		if err != nil {
			return 0, err
		}
		if i == 0 {
			result = v
			continue
		}
		switch ops[i-1] {
		case '+':
			if result+v < result {
				return 0, fmt.Errorf("%w: %q overflows", process.ErrInvalidAddress, expr)
			}
			result += v
		case '-':
			if v > result {
				return 0, fmt.Errorf("%w: %q underflows", process.ErrInvalidAddress, expr)
			}
			result -= v
		}
	}
	return result, nil
}

// splitTerms splits on + and on a - that only numbers follow up to the next
// +, so module names like "api-ms-win-crt-1-1-0.dll" stay whole.
func splitTerms(expr string) (terms []string, ops []byte) {
	start := 0
	for i := 1; i < len(expr); i++ {
		c := expr[i]
		if c == '+' || (c == '-' && isNumberTail(expr[i+1:])) {
			terms = append(terms, strings.TrimSpace(expr[start:i]))
			ops = append(ops, c)
			start = i + 1
		}
	}
	terms = append(terms, strings.TrimSpace(expr[start:]))
	return terms, ops
}

// isNumberTail reports whether s, up to the next +, is numbers joined by -.
func isNumberTail(s string) bool {
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	for _, part := range strings.Split(s, "-") {
		if !isNumber(strings.TrimSpace(part)) {
			return false
		}
	}
	return true
}

func isNumber(s string) bool {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return false
	}
	_, err := process.ParseAddress(s)
	return err == nil
}

func evalTerm(term string, modules ModuleResolver) (process.ProcessMemoryAddress, error) {
	if term == "" {
		return 0, fmt.Errorf("%w: missing term", process.ErrInvalidAddress)
	}

	var parseErr error
	if term[0] >= '0' && term[0] <= '9' {
		v, err := process.ParseAddress(term)
		if err == nil {
			return v, nil
		}
		// module names may start with a digit, e.g. 7z.dll
		parseErr = err
	}

	if modules == nil {
		if parseErr != nil {
			return 0, parseErr
		}
		return 0, fmt.Errorf("%w: %s (no target)", process.ErrModuleNotFound, term)
	}
	v, err := modules.ModuleStart(term)
	if err != nil && parseErr != nil && errors.Is(err, process.ErrModuleNotFound) {
		return 0, parseErr
	}
	return v, err
}
