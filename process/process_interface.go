package process

import (
	"memtool/process/memory_map"
)

// RawMemory is the boundary to the OS. Each method maps to exactly one OS
// call and never retries; callers own validation and fallback logic.
type RawMemory interface {
	// ReadProcessMemory fills buf from addr and returns the number of bytes
	// the OS reported as transferred.
	ReadProcessMemory(addr ProcessMemoryAddress, buf []byte) (int, error)

	// WriteProcessMemory writes data at addr and returns the number of bytes
	// the OS reported as transferred.
	WriteProcessMemory(addr ProcessMemoryAddress, data []byte) (int, error)

	// VirtualProtect sets the protection of the pages covering
	// [addr, addr+size) and returns the previous protection.
	VirtualProtect(addr ProcessMemoryAddress, size ProcessMemorySize, protect memory_map.Protection) (memory_map.Protection, error)

	// VirtualQuery describes the region containing addr.
	VirtualQuery(addr ProcessMemoryAddress) (memory_map.MemoryMapItem, error)
}

// Handle is an open process with memory access rights.
type Handle interface {
	RawMemory

	// GetPID returns the process ID
	GetPID() ProcessID

	// DetectArchitecture queries the bitness of the process. An error means
	// the answer is inconclusive.
	DetectArchitecture() (Architecture, error)

	// GetMemoryMap returns the committed regions sorted by address
	GetMemoryMap() ([]memory_map.MemoryMapItem, error)

	// Close releases the handle. Calling it twice is an error-free no-op.
	Close() error
}

// System is a platform: it finds processes and modules and opens handles.
type System interface {
	ProcessFinder
	ModuleFinder

	// OpenProcess opens pid for read, write, operation and query access.
	OpenProcess(pid ProcessID) (Handle, error)

	// EnableDebugPrivilege asks the OS for the debug privilege for the
	// current process. Failure is not fatal for callers.
	EnableDebugPrivilege() error
}
