package engine

import (
	"fmt"

	"memtool/process"
	"memtool/search"
)

// Scan searches the target's readable memory for aob.
func (e *Engine) Scan(aob search.AOB, options ...search.ScanOption) ([]process.ProcessMemoryAddress, error) {
	regions, err := e.Regions()
	if err != nil {
		return nil, err
	}
	mem, err := e.mem()
	if err != nil {
		return nil, err
	}

	e.debugln("Scanning", len(regions), "regions for", aob)
	results, err := search.Scan(mem, regions, aob, options...)
	if err != nil {
		return nil, err
	}
	e.debugln("Scan for", aob, "found", len(results), "matches")
	return results, nil
}

// ScanModule searches only the image of the named module.
func (e *Engine) ScanModule(name string, aob search.AOB, options ...search.ScanOption) ([]process.ProcessMemoryAddress, error) {
	m, err := e.GetModule(name)
	if err != nil {
		return nil, err
	}
	return e.Scan(aob, append(options, search.WithRange(m.Base, m.End))...)
}

// ScanFirst returns the lowest matching address.
func (e *Engine) ScanFirst(aob search.AOB, options ...search.ScanOption) (process.ProcessMemoryAddress, error) {
	results, err := e.Scan(aob, append(options, search.WithLimit(1))...)
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("%w: %s", search.ErrPatternNotFound, aob)
	}
	return results[0], nil
}
