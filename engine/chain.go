package engine

import (
	"fmt"

	"memtool/process"
)

// ResolvePointerChain follows offsets from base: every offset but the last
// is added and dereferenced with the target's pointer width, the last one is
// only added. No offsets resolves to base without reading anything.
func (e *Engine) ResolvePointerChain(base process.ProcessMemoryAddress, offsets ...uint32) (process.ProcessMemoryAddress, error) {
	if err := process.ValidateAddress(base); err != nil {
		return 0, err
	}
	mem, err := e.mem()
	if err != nil {
		return 0, err
	}

	r := process.ChainResolver{Memory: mem, Arch: e.arch}
	if e.debug {
		r.Trace = func(hop process.ChainHop) {
			e.debugln("Chain depth", hop.Depth, "at", hop.Location, "=", hop.Value)
		}
	}

	addr, err := r.Resolve(base, offsets...)
	if err != nil {
		return 0, err
	}
	e.debugln("Chain", base, fmt.Sprintf("%#x", offsets), "resolved to", addr)
	return addr, nil
}

// TraceChain resolves like ResolvePointerChain and also returns every
// dereference it made, including the hops before a failure.
func (e *Engine) TraceChain(base process.ProcessMemoryAddress, offsets ...uint32) ([]process.ChainHop, process.ProcessMemoryAddress, error) {
	if err := process.ValidateAddress(base); err != nil {
		return nil, 0, err
	}
	mem, err := e.mem()
	if err != nil {
		return nil, 0, err
	}

	var hops []process.ChainHop
	r := process.ChainResolver{
		Memory: mem,
		Arch:   e.arch,
		Trace:  func(hop process.ChainHop) { hops = append(hops, hop) },
	}
	addr, err := r.Resolve(base, offsets...)
	return hops, addr, err
}
