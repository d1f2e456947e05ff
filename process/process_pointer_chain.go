package process

import "fmt"

// ChainHop is one dereference performed while walking a pointer chain.
type ChainHop struct {
	Depth    int                  // 1-based
	Base     ProcessMemoryAddress // pointer value the offset was added to
	Offset   uint32
	Location ProcessMemoryAddress // Base + Offset, where the pointer was read
	Value    ProcessMemoryAddress // dereferenced pointer
}

// ChainResolver walks pointer chains in a target of a given architecture.
type ChainResolver struct {
	Memory RawMemory
	Arch   Architecture

	// Trace, when set, is called after every successful dereference.
	Trace func(hop ChainHop)
}

// ReadPointer reads one pointer of the architecture's width at addr and
// widens it to 64 bits.
func ReadPointer(mem RawMemory, arch Architecture, addr ProcessMemoryAddress) (ProcessMemoryAddress, error) {
	switch arch {
	case ArchitectureX86:
		v, err := Read[uint32](mem, addr)
		return ProcessMemoryAddress(v), err
	case ArchitectureX64:
		v, err := Read[uint64](mem, addr)
		return ProcessMemoryAddress(v), err
	}
	return 0, fmt.Errorf("cannot read pointer for architecture %s", arch)
}

// Resolve walks offsets from base. Every offset but the last is added to
// the current pointer and the result is dereferenced; the last offset is
// added without dereferencing, so the returned address locates the value
// itself. An empty chain resolves to base without touching memory.
//
// Example:
//
//	// base -> [+0x10]ptrA -> [+0x20]field
//	addr, err := r.Resolve(base, 0x10, 0x20) // ptrA + 0x20
func (r ChainResolver) Resolve(base ProcessMemoryAddress, offsets ...uint32) (ProcessMemoryAddress, error) {
	if len(offsets) == 0 {
		return base, nil
	}
	if !r.Arch.IsValid() {
		return 0, fmt.Errorf("cannot resolve pointer chain for architecture %s", r.Arch)
	}

	current := base
	for i, off := range offsets[:len(offsets)-1] {
		depth := i + 1
		location := current.Add(uint64(off))

		ptr, err := ReadPointer(r.Memory, r.Arch, location)
		if err != nil {
			return 0, &ChainError{Depth: depth, Location: location, Err: err}
		}
		if ptr == 0 {
			return 0, &ChainError{Depth: depth, Location: location, Null: true}
		}

		if r.Trace != nil {
			r.Trace(ChainHop{Depth: depth, Base: current, Offset: off, Location: location, Value: ptr})
		}
		current = ptr
	}

	return current.Add(uint64(offsets[len(offsets)-1])), nil
}

// ResolvePointerChain is ChainResolver.Resolve without tracing.
func ResolvePointerChain(mem RawMemory, arch Architecture, base ProcessMemoryAddress, offsets ...uint32) (ProcessMemoryAddress, error) {
	return ChainResolver{Memory: mem, Arch: arch}.Resolve(base, offsets...)
}
