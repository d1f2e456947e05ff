package process

import "fmt"

// ProcessID represents a unique identifier for a process
type ProcessID int

// ProcessInfo contains basic information about a process
type ProcessInfo struct {
	PID     ProcessID // Process ID
	PPID    ProcessID // Parent Process ID
	Name    string    // Executable file name
	Threads int       // Number of threads
}

// ModuleInfo describes a module mapped into a process. It is a snapshot
// taken at query time; modules can be unloaded or rebased at any moment.
type ModuleInfo struct {
	Name string               // Module file name, e.g. "target.exe"
	Path string               // Full path when the OS reports one
	Base ProcessMemoryAddress // First byte of the image
	Size ProcessMemorySize    // Image size in bytes
	End  ProcessMemoryAddress // Base + Size
}

// NewModuleInfo fills End from base and size.
func NewModuleInfo(name, path string, base ProcessMemoryAddress, size ProcessMemorySize) ModuleInfo {
	return ModuleInfo{
		Name: name,
		Path: path,
		Base: base,
		Size: size,
		End:  base + ProcessMemoryAddress(size),
	}
}

func (m ModuleInfo) Contains(addr ProcessMemoryAddress) bool {
	return addr >= m.Base && addr < m.End
}

func (m ModuleInfo) String() string {
	return fmt.Sprintf("%s [%s-%s] (%d bytes)", m.Name, m.Base, m.End, uint(m.Size))
}
