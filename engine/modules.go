package engine

import (
	"fmt"

	"memtool/process"
	"memtool/process/memory_map"
)

// ListProcesses returns the running processes sorted by PID.
func ListProcesses(finder process.ProcessFinder) ([]process.ProcessInfo, error) {
	return finder.FindAllProcesses()
}

// Modules lists the modules currently loaded in the target.
func (e *Engine) Modules() ([]process.ModuleInfo, error) {
	if _, err := e.mem(); err != nil {
		return nil, err
	}
	return e.sys.FindModules(e.info.PID)
}

// GetModule looks name up (case-insensitive) in the live module list. The
// result is never cached; modules can be unloaded or rebased at any time.
func (e *Engine) GetModule(name string) (process.ModuleInfo, error) {
	if _, err := e.mem(); err != nil {
		return process.ModuleInfo{}, err
	}
	m, err := e.sys.FindModule(e.info.PID, name)
	if err != nil {
		return process.ModuleInfo{}, err
	}
	e.debugln("Module", m)
	return *m, nil
}

// ModuleStart returns the base address of module name.
func (e *Engine) ModuleStart(name string) (process.ProcessMemoryAddress, error) {
	m, err := e.GetModule(name)
	if err != nil {
		return 0, err
	}
	return m.Base, nil
}

// ModuleEnd returns the first address past module name.
func (e *Engine) ModuleEnd(name string) (process.ProcessMemoryAddress, error) {
	m, err := e.GetModule(name)
	if err != nil {
		return 0, err
	}
	return m.End, nil
}

// Regions returns the committed regions of the target sorted by address.
func (e *Engine) Regions() ([]memory_map.MemoryMapItem, error) {
	mem, err := e.mem()
	if err != nil {
		return nil, err
	}
	regions, err := mem.GetMemoryMap()
	if err != nil {
		return nil, fmt.Errorf("read memory map of pid %d: %w", e.info.PID, err)
	}
	return regions, nil
}

// QueryProtection returns the protection of the page containing addr.
func (e *Engine) QueryProtection(addr process.ProcessMemoryAddress) (memory_map.Protection, error) {
	region, err := e.QueryRegion(addr)
	if err != nil {
		return 0, err
	}
	return region.Protect, nil
}

// QueryRegion describes the region containing addr.
func (e *Engine) QueryRegion(addr process.ProcessMemoryAddress) (memory_map.MemoryMapItem, error) {
	if err := process.ValidateAddress(addr); err != nil {
		return memory_map.MemoryMapItem{}, err
	}
	mem, err := e.mem()
	if err != nil {
		return memory_map.MemoryMapItem{}, err
	}
	region, err := mem.VirtualQuery(addr)
	if err != nil {
		return memory_map.MemoryMapItem{}, &process.OSError{Op: "VirtualQueryEx", Addr: addr, Err: err}
	}
	return region, nil
}
