//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"sort"
	"unsafe"

	"memtool/process"

	"golang.org/x/sys/windows"
)

// System finds processes and modules with toolhelp snapshots and opens
// WindowsProcess handles.
type System struct{}

var _ process.System = System{}

func (System) OpenProcess(pid process.ProcessID) (process.Handle, error) {
	return Open(pid)
}

func (System) EnableDebugPrivilege() error {
	return EnableDebugPrivilege()
}

func (System) FindAllProcesses() ([]process.ProcessInfo, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var out []process.ProcessInfo
	for err = windows.Process32First(snapshot, &entry); err == nil; err = windows.Process32Next(snapshot, &entry) {
		out = append(out, process.ProcessInfo{
			PID:     process.ProcessID(entry.ProcessID),
			PPID:    process.ProcessID(entry.ParentProcessID),
			Name:    windows.UTF16ToString(entry.ExeFile[:]),
			Threads: int(entry.Threads),
		})
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return nil, fmt.Errorf("Process32Next: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

func (s System) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	all, err := s.FindAllProcesses()
	if err != nil {
		return nil, err
	}
	return process.MatchProcessesByName(all, name), nil
}

func (s System) FindProcessByPID(pid process.ProcessID) (*process.ProcessInfo, error) {
	all, err := s.FindAllProcesses()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].PID == pid {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: pid %d", process.ErrProcessNotFound, pid)
}

// FindModules snapshots both 64-bit and 32-bit modules so WoW64 targets
// list their own images.
func (System) FindModules(pid process.ProcessID) ([]process.ModuleInfo, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot pid %d: %w", pid, err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var out []process.ModuleInfo
	for err = windows.Module32First(snapshot, &entry); err == nil; err = windows.Module32Next(snapshot, &entry) {
		out = append(out, process.NewModuleInfo(
			windows.UTF16ToString(entry.Module[:]),
			windows.UTF16ToString(entry.ExePath[:]),
			process.ProcessMemoryAddress(entry.ModBaseAddr),
			process.ProcessMemorySize(entry.ModBaseSize),
		))
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return nil, fmt.Errorf("Module32Next: %w", err)
	}
	return out, nil
}

func (s System) FindModule(pid process.ProcessID, name string) (*process.ModuleInfo, error) {
	modules, err := s.FindModules(pid)
	if err != nil {
		return nil, err
	}
	return process.MatchModuleByName(modules, name)
}
