// Package process_blob simulates a target process entirely in memory: a
// sparse paged address space with Windows-style page protection, a module
// list and fault injection hooks. It implements process.Handle and
// process.System so every layer above the OS boundary can run against it.
package process_blob

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"memtool/process"
	"memtool/process/memory_map"
)

// PageSize is the granularity of mapping and protection changes.
const PageSize = 0x1000

var (
	// ErrPartialCopy mirrors ERROR_PARTIAL_COPY: the range touches a page
	// that is unmapped or lacks the needed access.
	ErrPartialCopy = errors.New("only part of a ReadProcessMemory or WriteProcessMemory request was completed")

	// ErrNoAccess mirrors ERROR_NOACCESS.
	ErrNoAccess = errors.New("invalid access to memory location")

	// ErrHandleClosed mirrors ERROR_INVALID_HANDLE.
	ErrHandleClosed = errors.New("the handle is invalid")
)

type page struct {
	data    []byte
	protect memory_map.Protection
}

// Stats counts calls into the simulated OS primitives.
type Stats struct {
	Reads    int
	Writes   int
	Protects int
	Queries  int
	Closes   int
}

// ProcessBlob is a simulated process.
type ProcessBlob struct {
	mu      sync.Mutex
	pid     process.ProcessID
	name    string
	arch    process.Architecture
	pages   map[uint64]*page
	modules []process.ModuleInfo
	closed  bool
	stats   Stats

	shortReads  map[process.ProcessMemoryAddress]int
	shortWrites map[process.ProcessMemoryAddress]int
	protectErr  error
	restoreErr  error
	restoreArm  int
	archErr     error
}

var _ process.Handle = (*ProcessBlob)(nil)

// NewProcessBlob creates an empty simulated process. arch is what
// DetectArchitecture reports; ArchitectureAuto makes detection inconclusive.
func NewProcessBlob(pid process.ProcessID, name string, arch process.Architecture) *ProcessBlob {
	return &ProcessBlob{
		pid:         pid,
		name:        name,
		arch:        arch,
		pages:       make(map[uint64]*page),
		shortReads:  make(map[process.ProcessMemoryAddress]int),
		shortWrites: make(map[process.ProcessMemoryAddress]int),
	}
}

func pageBase(addr uint64) uint64 {
	return addr &^ (PageSize - 1)
}

// Map commits zeroed pages covering [addr, addr+size) with protect.
func (p *ProcessBlob) Map(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, protect memory_map.Protection) *ProcessBlob {
	p.mu.Lock()
	defer p.mu.Unlock()

	if size == 0 {
		return p
	}
	end := uint64(addr) + uint64(size)
	for base := pageBase(uint64(addr)); base < end; base += PageSize {
		if pg, ok := p.pages[base]; ok {
			pg.protect = protect
			continue
		}
		p.pages[base] = &page{data: make([]byte, PageSize), protect: protect}
	}
	return p
}

// AddModule maps an image of size bytes at base and registers it.
func (p *ProcessBlob) AddModule(name string, base process.ProcessMemoryAddress, size process.ProcessMemorySize) *ProcessBlob {
	p.Map(base, size, memory_map.PageExecuteRead)
	p.mu.Lock()
	p.modules = append(p.modules, process.NewModuleInfo(name, `C:\sim\`+name, base, size))
	p.mu.Unlock()
	return p
}

// Poke stores data bypassing protection. addr must be mapped.
func (p *ProcessBlob) Poke(addr process.ProcessMemoryAddress, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, b := range data {
		a := uint64(addr) + uint64(i)
		pg, ok := p.pages[pageBase(a)]
		if !ok {
			panic(fmt.Sprintf("process_blob: poke at unmapped address 0x%x", a))
		}
		pg.data[a-pageBase(a)] = b
	}
}

// Peek returns n bytes bypassing protection. Unmapped bytes read as zero.
func (p *ProcessBlob) Peek(addr process.ProcessMemoryAddress, n int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]byte, n)
	for i := range out {
		a := uint64(addr) + uint64(i)
		if pg, ok := p.pages[pageBase(a)]; ok {
			out[i] = pg.data[a-pageBase(a)]
		}
	}
	return out
}

// PokePointer stores value with the width of the blob's architecture
// (8 bytes when the architecture is unknown).
func (p *ProcessBlob) PokePointer(addr process.ProcessMemoryAddress, value process.ProcessMemoryAddress) {
	if p.arch == process.ArchitectureX86 {
		p.Poke(addr, process.Bytes(uint32(value)))
		return
	}
	p.Poke(addr, process.Bytes(uint64(value)))
}

// Protection returns the protection of the page containing addr, or zero
// when it is unmapped.
func (p *ProcessBlob) Protection(addr process.ProcessMemoryAddress) memory_map.Protection {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pg, ok := p.pages[pageBase(uint64(addr))]; ok {
		return pg.protect
	}
	return 0
}

// ShortRead makes reads starting at addr report success after transferring
// only n bytes. A negative n clears the fault.
func (p *ProcessBlob) ShortRead(addr process.ProcessMemoryAddress, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n < 0 {
		delete(p.shortReads, addr)
		return
	}
	p.shortReads[addr] = n
}

// ShortWrite makes writes starting at addr report success after
// transferring only n bytes; only those bytes are stored. A negative n
// clears the fault.
func (p *ProcessBlob) ShortWrite(addr process.ProcessMemoryAddress, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n < 0 {
		delete(p.shortWrites, addr)
		return
	}
	p.shortWrites[addr] = n
}

// FailProtect makes every protection change fail with err (nil clears).
func (p *ProcessBlob) FailProtect(err error) {
	p.mu.Lock()
	p.protectErr = err
	p.mu.Unlock()
}

// FailRestore lets the next protection change succeed and makes the
// following ones fail with err (nil clears). Arm it right before a forced
// write to break only the restore step.
func (p *ProcessBlob) FailRestore(err error) {
	p.mu.Lock()
	p.restoreErr = err
	p.restoreArm = 0
	p.mu.Unlock()
}

// FailDetect makes DetectArchitecture fail with err (nil clears).
func (p *ProcessBlob) FailDetect(err error) {
	p.mu.Lock()
	p.archErr = err
	p.mu.Unlock()
}

// Stats returns the call counters.
func (p *ProcessBlob) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// IsClosed reports whether Close was called.
func (p *ProcessBlob) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Reopen clears the closed state so the same blob can back another handle.
func (p *ProcessBlob) Reopen() {
	p.mu.Lock()
	p.closed = false
	p.mu.Unlock()
}

func (p *ProcessBlob) GetPID() process.ProcessID {
	return p.pid
}

func (p *ProcessBlob) Name() string {
	return p.name
}

func (p *ProcessBlob) DetectArchitecture() (process.Architecture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.archErr != nil {
		return process.ArchitectureAuto, p.archErr
	}
	if !p.arch.IsValid() {
		return process.ArchitectureAuto, errors.New("process bitness unknown")
	}
	return p.arch, nil
}

func (p *ProcessBlob) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.stats.Closes++
	return nil
}

// access walks the bytes of [addr, addr+n) and calls fn for each one that
// lives on a page satisfying ok. It stops at the first byte that does not
// and returns how many bytes were visited.
func (p *ProcessBlob) access(addr process.ProcessMemoryAddress, n int, ok func(memory_map.Protection) bool, fn func(pg *page, off uint64, i int)) int {
	for i := 0; i < n; i++ {
		a := uint64(addr) + uint64(i)
		pg, mapped := p.pages[pageBase(a)]
		if !mapped || !ok(pg.protect) {
			return i
		}
		fn(pg, a-pageBase(a), i)
	}
	return n
}

func (p *ProcessBlob) ReadProcessMemory(addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Reads++
	if p.closed {
		return 0, ErrHandleClosed
	}

	want := len(buf)
	if n, ok := p.shortReads[addr]; ok && n < want {
		want = n
	}

	n := p.access(addr, want, memory_map.Protection.IsReadable, func(pg *page, off uint64, i int) {
		buf[i] = pg.data[off]
	})
	if n != want {
		return n, ErrPartialCopy
	}
	return n, nil
}

func (p *ProcessBlob) WriteProcessMemory(addr process.ProcessMemoryAddress, data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Writes++
	if p.closed {
		return 0, ErrHandleClosed
	}

	want := len(data)
	if n, ok := p.shortWrites[addr]; ok && n < want {
		want = n
	}

	// Windows checks the whole range before copying anything.
	if n := p.access(addr, want, memory_map.Protection.IsWritable, func(*page, uint64, int) {}); n != want {
		return 0, ErrNoAccess
	}
	n := p.access(addr, want, memory_map.Protection.IsWritable, func(pg *page, off uint64, i int) {
		pg.data[off] = data[i]
	})
	return n, nil
}

func (p *ProcessBlob) VirtualProtect(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, protect memory_map.Protection) (memory_map.Protection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Protects++
	if p.closed {
		return 0, ErrHandleClosed
	}
	if p.protectErr != nil {
		return 0, p.protectErr
	}
	if p.restoreErr != nil {
		p.restoreArm++
		if p.restoreArm > 1 {
			return 0, p.restoreErr
		}
	}
	if size == 0 {
		return 0, ErrNoAccess
	}

	start := pageBase(uint64(addr))
	end := uint64(addr) + uint64(size)
	first, ok := p.pages[start]
	if !ok {
		return 0, ErrNoAccess
	}
	for base := start; base < end; base += PageSize {
		if _, ok := p.pages[base]; !ok {
			return 0, ErrNoAccess
		}
	}

	previous := first.protect
	for base := start; base < end; base += PageSize {
		p.pages[base].protect = protect
	}
	return previous, nil
}

func (p *ProcessBlob) VirtualQuery(addr process.ProcessMemoryAddress) (memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Queries++
	if p.closed {
		return memory_map.MemoryMapItem{}, ErrHandleClosed
	}
	for _, item := range p.regions() {
		if item.Contains(uint64(addr)) {
			return item, nil
		}
	}
	return memory_map.MemoryMapItem{}, fmt.Errorf("address 0x%x: %w", uint64(addr), ErrNoAccess)
}

func (p *ProcessBlob) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrHandleClosed
	}
	return p.regions(), nil
}

// regions coalesces adjacent pages with equal protection.
func (p *ProcessBlob) regions() []memory_map.MemoryMapItem {
	bases := make([]uint64, 0, len(p.pages))
	for base := range p.pages {
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })

	var out []memory_map.MemoryMapItem
	for _, base := range bases {
		protect := p.pages[base].protect
		if n := len(out); n > 0 && out[n-1].End() == base && out[n-1].Protect == protect {
			out[n-1].Size += PageSize
			continue
		}
		out = append(out, memory_map.NewMemoryMapItem(base, PageSize, protect))
	}
	return out
}
