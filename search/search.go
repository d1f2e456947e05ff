// Package search discovers pointer chains: starting from a base address it
// walks structures and the pointers they contain until it finds a value,
// and reports every offset path that leads there. The paths use the same
// convention as process.ResolvePointerChain, so a result can be fed back to
// it (or saved as a named chain) unchanged.
package search

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"memtool/process"
	"memtool/process/memory_map"
)

// Searcher holds configuration for the search
type Searcher struct {
	MaxStructSize uint
	MaxDepth      int
	MinAlignment  uint
	MaxResults    int
	SearchFor     func([]byte) bool
}

// Option is a function that configures a Searcher
type Option func(*Searcher)

func WithMaxStructSize(size uint) Option {
	return func(s *Searcher) {
		s.MaxStructSize = size
	}
}

func WithMaxDepth(depth int) Option {
	return func(s *Searcher) {
		s.MaxDepth = depth
	}
}

func WithMinAlignment(align uint) Option {
	return func(s *Searcher) {
		s.MinAlignment = align
	}
}

// WithMaxResults stops the walk once n paths were found. Zero means no limit.
func WithMaxResults(n int) Option {
	return func(s *Searcher) {
		s.MaxResults = n
	}
}

// WithSearchForValue matches the in-memory bytes of val.
func WithSearchForValue[T process.Scalar](val T) Option {
	return WithSearchForBytes(process.Bytes(val))
}

// WithSearchForBytes matches an exact byte sequence.
func WithSearchForBytes(pattern []byte) Option {
	pattern = append([]byte(nil), pattern...)
	return func(s *Searcher) {
		s.SearchFor = func(data []byte) bool {
			return len(pattern) > 0 && bytes.HasPrefix(data, pattern)
		}
	}
}

// SearchResult is one offset path from the base to a match.
type SearchResult struct {
	Offsets []uint32
	Address process.ProcessMemoryAddress
}

func (r SearchResult) String() string {
	s := ""
	for i, off := range r.Offsets {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("0x%X", off)
	}
	return fmt.Sprintf("[%s] -> %s", s, r.Address)
}

// Search walks the target from base. At every aligned offset of a structure
// it checks for the value, and at every pointer-aligned offset holding an
// address that lies in a readable region it descends. regions is the
// target's memory map; pointers outside it are never followed.
func Search(mem process.RawMemory, arch process.Architecture, regions []memory_map.MemoryMapItem, base process.ProcessMemoryAddress, options ...Option) ([]SearchResult, error) {
	s := &Searcher{
		MaxStructSize: 256, // Default
		MaxDepth:      3,   // Default
		MinAlignment:  4,   // Default
	}

	for _, opt := range options {
		opt(s)
	}

	if s.SearchFor == nil {
		return nil, fmt.Errorf("no search target specified")
	}
	if !arch.IsValid() {
		return nil, fmt.Errorf("cannot search pointers for architecture %s", arch)
	}
	if s.MinAlignment == 0 {
		s.MinAlignment = 1
	}

	readable := make([]memory_map.MemoryMapItem, 0, len(regions))
	for _, r := range regions {
		if r.IsReadable() {
			readable = append(readable, r)
		}
	}
	memory_map.Sort(readable)

	ptrSize := uint(arch.PointerSize())

	var results []SearchResult
	visited := make(map[process.ProcessMemoryAddress]bool)

	done := func() bool {
		return s.MaxResults > 0 && len(results) >= s.MaxResults
	}

	var searchRecursive func(addr process.ProcessMemoryAddress, depth int, path []uint32)
	searchRecursive = func(addr process.ProcessMemoryAddress, depth int, path []uint32) {
		if depth > s.MaxDepth || visited[addr] || done() {
			return
		}
		visited[addr] = true

		data, err := readStruct(mem, readable, addr, s.MaxStructSize)
		if err != nil || len(data) == 0 {
			return
		}

		for offset := uint(0); offset < uint(len(data)) && !done(); offset += s.MinAlignment {
			if s.SearchFor(data[offset:]) {
				results = append(results, SearchResult{
					Offsets: appendPath(path, uint32(offset)),
					Address: addr.Add(uint64(offset)),
				})
			}

			if depth == s.MaxDepth || offset%ptrSize != 0 || offset+ptrSize > uint(len(data)) {
				continue
			}

			var ptr process.ProcessMemoryAddress
			if ptrSize == 4 {
				ptr = process.ProcessMemoryAddress(binary.LittleEndian.Uint32(data[offset:]))
			} else {
				ptr = process.ProcessMemoryAddress(binary.LittleEndian.Uint64(data[offset:]))
			}
			if ptr != 0 && memory_map.IsValidAddress(uint64(ptr), readable) {
				searchRecursive(ptr, depth+1, appendPath(path, uint32(offset)))
			}
		}
	}

	searchRecursive(base, 0, nil)

	return results, nil
}

// readStruct reads up to size bytes at addr, clipped to the end of the
// readable region containing addr.
func readStruct(mem process.RawMemory, readable []memory_map.MemoryMapItem, addr process.ProcessMemoryAddress, size uint) ([]byte, error) {
	region := memory_map.FindRegion(uint64(addr), readable)
	if region == nil {
		return nil, fmt.Errorf("%s is not in a readable region", addr)
	}
	if avail := region.End() - uint64(addr); uint64(size) > avail {
		size = uint(avail)
	}
	return process.ReadBytes(mem, addr, process.ProcessMemorySize(size))
}

func appendPath(path []uint32, off uint32) []uint32 {
	out := make([]uint32, len(path), len(path)+1)
	copy(out, path)
	return append(out, off)
}
