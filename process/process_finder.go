package process

import (
	"fmt"
	"strings"
)

// ProcessFinder defines operations for discovering processes
type ProcessFinder interface {
	// FindAllProcesses returns information about all running processes
	FindAllProcesses() ([]ProcessInfo, error)

	// FindProcessByName finds processes by executable name (case-insensitive)
	FindProcessByName(name string) ([]ProcessInfo, error)

	// FindProcessByPID finds a process by its PID
	FindProcessByPID(pid ProcessID) (*ProcessInfo, error)
}

// ModuleFinder defines operations for discovering the modules of a process.
// Implementations query the live process on every call.
type ModuleFinder interface {
	// FindModules lists the modules loaded in pid
	FindModules(pid ProcessID) ([]ModuleInfo, error)

	// FindModule finds a module by file name (case-insensitive)
	FindModule(pid ProcessID, name string) (*ModuleInfo, error)
}

// MatchProcessesByName filters list the way FindProcessByName does.
func MatchProcessesByName(list []ProcessInfo, name string) []ProcessInfo {
	var out []ProcessInfo
	for _, p := range list {
		if strings.EqualFold(p.Name, name) {
			out = append(out, p)
		}
	}
	return out
}

// MatchModuleByName returns the first module whose name matches, or
// ErrModuleNotFound.
func MatchModuleByName(list []ModuleInfo, name string) (*ModuleInfo, error) {
	for i := range list {
		if strings.EqualFold(list[i].Name, name) {
			m := list[i]
			return &m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
}
