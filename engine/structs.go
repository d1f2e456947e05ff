package engine

import (
	"fmt"

	"memtool/pod"
	"memtool/process"
	"memtool/process/memory_map"
)

// Validator returns a pod.AddressValidator backed by a snapshot of the
// target's memory map. The snapshot is not refreshed.
func (e *Engine) Validator() (pod.AddressValidator, error) {
	regions, err := e.Regions()
	if err != nil {
		return nil, err
	}
	memory_map.Sort(regions)
	return func(addr process.ProcessMemoryAddress) bool {
		return memory_map.IsValidAddress(uint64(addr), regions)
	}, nil
}

// ReadStruct reads a T at addr. Fields tagged pod:"valid_pointer" that do
// not point into readable memory are zeroed and pod:"char_array" fields are
// cut at their first NUL.
func ReadStruct[T any](e *Engine, addr process.ProcessMemoryAddress) (T, error) {
	var zero T
	if err := process.ValidateRange(addr, pod.SizeOf[T]()); err != nil {
		return zero, err
	}
	mem, err := e.mem()
	if err != nil {
		return zero, err
	}
	valid, err := e.Validator()
	if err != nil {
		return zero, err
	}

	v, err := pod.ReadT[T](mem, addr, valid)
	if err != nil {
		return zero, err
	}
	e.debugln("Read struct", fmt.Sprintf("%T", v), pod.SizeOf[T](), "bytes at", addr)
	return v, nil
}

// ReadStructs reads count consecutive Ts starting at addr.
func ReadStructs[T any](e *Engine, addr process.ProcessMemoryAddress, count int) ([]T, error) {
	mem, err := e.mem()
	if err != nil {
		return nil, err
	}
	valid, err := e.Validator()
	if err != nil {
		return nil, err
	}

	v, err := pod.ReadSliceT[T](mem, addr, count, valid)
	if err != nil {
		return nil, err
	}
	e.debugln("Read", len(v), "structs at", addr)
	return v, nil
}

// WriteStruct writes v at addr with the same protection fallback as Write.
func WriteStruct[T any](e *Engine, addr process.ProcessMemoryAddress, v T) error {
	size := pod.SizeOf[T]()
	if err := process.ValidateRange(addr, size); err != nil {
		return err
	}
	mem, err := e.mem()
	if err != nil {
		return err
	}

	report, err := pod.WriteT(mem, addr, v)
	e.reportWrite(addr, int(size), report)
	if err != nil {
		return err
	}
	e.debugln("Wrote struct", fmt.Sprintf("%T", v), "at", addr)
	return nil
}

// ReadPointerList reads count pointers of the target's width at addr and
// returns the non-NULL ones that point into readable memory.
func (e *Engine) ReadPointerList(addr process.ProcessMemoryAddress, count int) ([]process.ProcessMemoryAddress, error) {
	if count <= 0 {
		return nil, nil
	}
	if err := process.ValidateRange(addr, process.ProcessMemorySize(count)*e.arch.PointerSize()); err != nil {
		return nil, err
	}
	mem, err := e.mem()
	if err != nil {
		return nil, err
	}
	valid, err := e.Validator()
	if err != nil {
		return nil, err
	}

	ptrs, err := pod.ReadPointerList(mem, e.arch, addr, count, valid)
	if err != nil {
		return nil, err
	}
	e.debugln("Read", len(ptrs), "of", count, "pointers at", addr)
	return ptrs, nil
}
