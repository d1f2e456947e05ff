package memory_map

import (
	"fmt"
	"sort"
)

// Protection is a page protection value using the Windows PAGE_* encoding.
type Protection uint32

const (
	PageNoAccess         Protection = 0x01
	PageReadOnly         Protection = 0x02
	PageReadWrite        Protection = 0x04
	PageWriteCopy        Protection = 0x08
	PageExecute          Protection = 0x10
	PageExecuteRead      Protection = 0x20
	PageExecuteReadWrite Protection = 0x40
	PageExecuteWriteCopy Protection = 0x80

	PageGuard        Protection = 0x100
	PageNoCache      Protection = 0x200
	PageWriteCombine Protection = 0x400

	pageModifierMask = PageGuard | PageNoCache | PageWriteCombine
)

// Region states and types reported by VirtualQueryEx.
const (
	MemCommit  uint32 = 0x1000
	MemReserve uint32 = 0x2000
	MemFree    uint32 = 0x10000

	MemPrivate uint32 = 0x20000
	MemMapped  uint32 = 0x40000
	MemImage   uint32 = 0x1000000
)

func (p Protection) base() Protection {
	return p &^ pageModifierMask
}

// IsReadable reports whether the protection allows reads. Guard pages are
// treated as unreadable since the first touch faults.
func (p Protection) IsReadable() bool {
	if p&PageGuard != 0 {
		return false
	}
	switch p.base() {
	case PageReadOnly, PageReadWrite, PageWriteCopy,
		PageExecuteRead, PageExecuteReadWrite, PageExecuteWriteCopy:
		return true
	}
	return false
}

func (p Protection) IsWritable() bool {
	switch p.base() {
	case PageReadWrite, PageWriteCopy, PageExecuteReadWrite, PageExecuteWriteCopy:
		return true
	}
	return false
}

func (p Protection) IsExecutable() bool {
	switch p.base() {
	case PageExecute, PageExecuteRead, PageExecuteReadWrite, PageExecuteWriteCopy:
		return true
	}
	return false
}

// Perms renders the protection in the "rwxp" style used by /proc/<pid>/maps,
// with 'c' in the last column for copy-on-write pages and 'g' for guard pages.
func (p Protection) Perms() string {
	perms := []byte("---p")
	if p.IsReadable() {
		perms[0] = 'r'
	}
	if p.IsWritable() {
		perms[1] = 'w'
	}
	if p.IsExecutable() {
		perms[2] = 'x'
	}
	switch {
	case p&PageGuard != 0:
		perms[3] = 'g'
	case p.base() == PageWriteCopy || p.base() == PageExecuteWriteCopy:
		perms[3] = 'c'
	}
	return string(perms)
}

func (p Protection) String() string {
	names := map[Protection]string{
		PageNoAccess:         "PAGE_NOACCESS",
		PageReadOnly:         "PAGE_READONLY",
		PageReadWrite:        "PAGE_READWRITE",
		PageWriteCopy:        "PAGE_WRITECOPY",
		PageExecute:          "PAGE_EXECUTE",
		PageExecuteRead:      "PAGE_EXECUTE_READ",
		PageExecuteReadWrite: "PAGE_EXECUTE_READWRITE",
		PageExecuteWriteCopy: "PAGE_EXECUTE_WRITECOPY",
	}
	name, ok := names[p.base()]
	if !ok {
		name = fmt.Sprintf("0x%X", uint32(p.base()))
	}
	if p&PageGuard != 0 {
		name += "|PAGE_GUARD"
	}
	if p&PageNoCache != 0 {
		name += "|PAGE_NOCACHE"
	}
	if p&PageWriteCombine != 0 {
		name += "|PAGE_WRITECOMBINE"
	}
	return name
}

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64     // The starting address of the memory region
	Size    uint       // The size of the memory region in bytes
	Perms   string     // Permissions (e.g., "r-xp" for read, execute, private)
	Protect Protection // Raw page protection
	State   uint32     // MEM_COMMIT, MEM_RESERVE or MEM_FREE
	Type    uint32     // MEM_IMAGE, MEM_MAPPED or MEM_PRIVATE
}

// NewMemoryMapItem builds an item with Perms derived from protect.
func NewMemoryMapItem(address uint64, size uint, protect Protection) MemoryMapItem {
	return MemoryMapItem{
		Address: address,
		Size:    size,
		Perms:   protect.Perms(),
		Protect: protect,
		State:   MemCommit,
		Type:    MemPrivate,
	}
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, Protect: %s", mmItem.Address, mmItem.Size, mmItem.Perms, mmItem.Protect)
}

// End returns the first address past the region.
func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

func (mmItem MemoryMapItem) Contains(addr uint64) bool {
	return addr >= mmItem.Address && addr < mmItem.End()
}

func (mmItem MemoryMapItem) IsCommitted() bool {
	return mmItem.State == MemCommit
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return mmItem.IsCommitted() && mmItem.Protect.IsReadable()
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return mmItem.IsCommitted() && mmItem.Protect.IsWritable()
}

// Sort orders the items by start address, which FindRegion requires.
func Sort(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// FindRegion returns the region containing addr. memoryMap must be sorted.
func FindRegion(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}

	return nil
}

// IsValidAddress checks if an address is within a committed, readable region
func IsValidAddress(addr uint64, memoryMap []MemoryMapItem) bool {
	item := FindRegion(addr, memoryMap)
	return item != nil && item.IsReadable()
}
