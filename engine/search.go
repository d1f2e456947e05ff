package engine

import (
	"memtool/process"
	"memtool/search"
)

// FindPointerPaths searches for pointer chains from base to a value chosen
// by the search options (see search.WithSearchForValue). Every result can
// be passed to ResolvePointerChain as is.
func (e *Engine) FindPointerPaths(base process.ProcessMemoryAddress, options ...search.Option) ([]search.SearchResult, error) {
	if err := process.ValidateAddress(base); err != nil {
		return nil, err
	}
	regions, err := e.Regions()
	if err != nil {
		return nil, err
	}
	mem, err := e.mem()
	if err != nil {
		return nil, err
	}

	results, err := search.Search(mem, e.arch, regions, base, options...)
	if err != nil {
		return nil, err
	}
	e.debugln("Pointer search from", base, "found", len(results), "paths")
	return results, nil
}
