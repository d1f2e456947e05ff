package search

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"memtool/process"
	"memtool/process/memory_map"
)

// ErrPatternNotFound is returned by ScanFirst when nothing matches.
var ErrPatternNotFound = errors.New("pattern not found")

// DefaultChunkSize bounds a single read while scanning a region.
const DefaultChunkSize = 1 << 20

// AOB is an array of bytes pattern. A zero mask byte is a wildcard; other
// mask bytes select the bits of Pattern that must match.
type AOB struct {
	Pattern []byte
	Mask    []byte
}

// NewAOB validates pattern and mask. An empty mask means an exact match.
func NewAOB(pattern, mask []byte) (AOB, error) {
	if len(pattern) == 0 {
		return AOB{}, errors.New("empty pattern")
	}
	if len(mask) == 0 {
		mask = bytes.Repeat([]byte{0xFF}, len(pattern))
	} else if len(mask) != len(pattern) {
		return AOB{}, fmt.Errorf("mask length (%d) doesn't match pattern length (%d)", len(mask), len(pattern))
	}
	return AOB{Pattern: pattern, Mask: mask}, nil
}

// ParseAOB parses hex bytes separated by spaces or commas, with ?? or ? as
// a wildcard, e.g. "48 8B ?? 10" or "48,8b,?,10".
func ParseAOB(s string) (AOB, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	var pattern, mask []byte
	for _, part := range parts {
		if part == "??" || part == "?" {
			pattern = append(pattern, 0)
			mask = append(mask, 0)
			continue
		}

		val, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(part), "0x"), 16, 8)
		if err != nil {
			return AOB{}, fmt.Errorf("invalid hex byte: %s", part)
		}
		pattern = append(pattern, byte(val))
		mask = append(mask, 0xFF)
	}
	return NewAOB(pattern, mask)
}

// String formats the pattern the way ParseAOB reads it.
func (a AOB) String() string {
	var sb strings.Builder
	for i, p := range a.Pattern {
		if i > 0 {
			sb.WriteString(" ")
		}
		if i < len(a.Mask) && a.Mask[i] == 0 {
			sb.WriteString("??")
		} else {
			fmt.Fprintf(&sb, "%02X", p)
		}
	}
	return sb.String()
}

// Match reports whether data starts with the pattern.
func (a AOB) Match(data []byte) bool {
	if len(data) < len(a.Pattern) {
		return false
	}
	for j := range a.Pattern {
		if data[j]&a.Mask[j] != a.Pattern[j]&a.Mask[j] {
			return false
		}
	}
	return true
}

// FindPattern returns the offsets of every match of aob in data.
func FindPattern(data []byte, aob AOB) []int {
	var matches []int
	for i := 0; i+len(aob.Pattern) <= len(data); i++ {
		if aob.Match(data[i:]) {
			matches = append(matches, i)
		}
	}
	return matches
}

// Scanner holds configuration for a pattern scan
type Scanner struct {
	Jobs      int
	ChunkSize int
	Start     process.ProcessMemoryAddress
	End       process.ProcessMemoryAddress
	Limit     int
}

// ScanOption is a function that configures a Scanner
type ScanOption func(*Scanner)

// WithJobs sets how many regions are scanned at once. It is capped at the
// number of CPUs; one or less scans sequentially.
func WithJobs(n int) ScanOption {
	return func(s *Scanner) {
		s.Jobs = n
	}
}

func WithChunkSize(n int) ScanOption {
	return func(s *Scanner) {
		s.ChunkSize = n
	}
}

// WithRange restricts the scan to matches lying in [start, end).
func WithRange(start, end process.ProcessMemoryAddress) ScanOption {
	return func(s *Scanner) {
		s.Start = start
		s.End = end
	}
}

// WithLimit keeps only the first n matches by address. Zero keeps all.
func WithLimit(n int) ScanOption {
	return func(s *Scanner) {
		s.Limit = n
	}
}

type span struct {
	addr uint64
	size uint64
}

// Scan searches the readable regions for aob and returns the matching
// addresses in ascending order. Regions that fail to read are skipped.
func Scan(mem process.RawMemory, regions []memory_map.MemoryMapItem, aob AOB, options ...ScanOption) ([]process.ProcessMemoryAddress, error) {
	if len(aob.Pattern) == 0 || len(aob.Mask) != len(aob.Pattern) {
		return nil, errors.New("invalid pattern")
	}

	s := &Scanner{
		Jobs:      1,
		ChunkSize: DefaultChunkSize,
		End:       ^process.ProcessMemoryAddress(0),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.ChunkSize < len(aob.Pattern) {
		s.ChunkSize = len(aob.Pattern)
	}
	if numCPU := runtime.NumCPU(); s.Jobs > numCPU {
		s.Jobs = numCPU
	}
	if s.Jobs < 1 {
		s.Jobs = 1
	}

	var spans []span
	for _, region := range regions {
		if !region.IsReadable() {
			continue
		}
		start := max(region.Address, uint64(s.Start))
		end := min(region.End(), uint64(s.End))
		if start >= end {
			continue
		}
		spans = append(spans, span{addr: start, size: end - start})
	}

	var (
		sem     = make(chan struct{}, s.Jobs)
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []process.ProcessMemoryAddress
	)
	for _, sp := range spans {
		wg.Add(1)
		sem <- struct{}{}

		go func(sp span) {
			defer func() {
				<-sem
				wg.Done()
			}()

			matches := scanSpan(mem, sp, aob, s.ChunkSize)
			if len(matches) > 0 {
				mu.Lock()
				results = append(results, matches...)
				mu.Unlock()
			}
		}(sp)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	if s.Limit > 0 && len(results) > s.Limit {
		results = results[:s.Limit]
	}
	return results, nil
}

// scanSpan reads sp in chunks that overlap by len(pattern)-1 bytes, so a
// match straddling two chunks is found exactly once.
func scanSpan(mem process.RawMemory, sp span, aob AOB, chunkSize int) []process.ProcessMemoryAddress {
	var matches []process.ProcessMemoryAddress
	overlap := uint64(len(aob.Pattern) - 1)
	end := sp.addr + sp.size

	for off := sp.addr; off < end; off += uint64(chunkSize) {
		n := min(uint64(chunkSize)+overlap, end-off)
		if n < uint64(len(aob.Pattern)) {
			break
		}
		data, err := process.ReadBytes(mem, process.ProcessMemoryAddress(off), process.ProcessMemorySize(n))
		if err != nil {
			continue
		}
		for _, i := range FindPattern(data, aob) {
			if uint64(i) < uint64(chunkSize) {
				matches = append(matches, process.ProcessMemoryAddress(off+uint64(i)))
			}
		}
	}
	return matches
}
