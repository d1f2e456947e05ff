//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"memtool/process"
	"memtool/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

// AccessRights is what OpenProcess asks for: enough to read, write, change
// protection and query the target.
const AccessRights = windows.PROCESS_VM_READ |
	windows.PROCESS_VM_WRITE |
	windows.PROCESS_VM_OPERATION |
	windows.PROCESS_QUERY_INFORMATION

var errHandleClosed = errors.New("handle closed")

// WindowsProcess implements process.Handle over an OS process handle.
type WindowsProcess struct {
	pid    process.ProcessID
	handle windows.Handle
	log    *logger.Logger
	mu     sync.Mutex
}

var _ process.Handle = (*WindowsProcess)(nil)

// Open acquires a handle to pid with AccessRights.
func Open(pid process.ProcessID) (*WindowsProcess, error) {
	handle, err := windows.OpenProcess(AccessRights, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("OpenProcess %d: %w", pid, err)
	}

	p := &WindowsProcess{
		pid:    pid,
		handle: handle,
		log:    logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}
	p.log.Infoln("Process opened")
	return p, nil
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == 0 {
		return nil
	}

	err := windows.CloseHandle(p.handle)
	p.handle = 0
	if err != nil {
		return fmt.Errorf("CloseHandle: %w", err)
	}

	p.log.Infoln("Process closed")
	return nil
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	return p.pid
}

func (p *WindowsProcess) current() (windows.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return 0, errHandleClosed
	}
	return p.handle, nil
}

// DetectArchitecture reports x86 for WoW64 targets and x64 otherwise.
// A 32-bit build of this tool can only see 32-bit targets.
func (p *WindowsProcess) DetectArchitecture() (process.Architecture, error) {
	handle, err := p.current()
	if err != nil {
		return process.ArchitectureAuto, err
	}
	if runtime.GOARCH == "386" {
		return process.ArchitectureX86, nil
	}

	var wow64 bool
	if err := windows.IsWow64Process(handle, &wow64); err != nil {
		return process.ArchitectureAuto, fmt.Errorf("IsWow64Process: %w", err)
	}
	if wow64 {
		return process.ArchitectureX86, nil
	}
	return process.ArchitectureX64, nil
}

func (p *WindowsProcess) ReadProcessMemory(addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	handle, err := p.current()
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}

	var n uintptr
	err = windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(len(buf)), &n)
	return int(n), err
}

func (p *WindowsProcess) WriteProcessMemory(addr process.ProcessMemoryAddress, data []byte) (int, error) {
	handle, err := p.current()
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}

	var n uintptr
	err = windows.WriteProcessMemory(handle, uintptr(addr), &data[0], uintptr(len(data)), &n)
	return int(n), err
}

func (p *WindowsProcess) VirtualProtect(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, protect memory_map.Protection) (memory_map.Protection, error) {
	handle, err := p.current()
	if err != nil {
		return 0, err
	}

	var old uint32
	if err := windows.VirtualProtectEx(handle, uintptr(addr), uintptr(size), uint32(protect), &old); err != nil {
		return 0, err
	}
	return memory_map.Protection(old), nil
}

func (p *WindowsProcess) VirtualQuery(addr process.ProcessMemoryAddress) (memory_map.MemoryMapItem, error) {
	handle, err := p.current()
	if err != nil {
		return memory_map.MemoryMapItem{}, err
	}
	return memory_map.QueryRegion(handle, uint64(addr))
}

func (p *WindowsProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	handle, err := p.current()
	if err != nil {
		return nil, err
	}
	return memory_map.ReadMemoryMap(handle)
}
