package process_blob

import (
	"fmt"
	"sort"

	"memtool/process"
)

// System is a simulated platform holding a set of ProcessBlobs.
type System struct {
	procs map[process.ProcessID]*ProcessBlob

	// PrivilegeErr is returned by EnableDebugPrivilege.
	PrivilegeErr error

	// DenyOpen lists PIDs whose OpenProcess fails as if access was denied.
	DenyOpen map[process.ProcessID]bool

	PrivilegeCalls int
	OpenCalls      int
}

var _ process.System = (*System)(nil)

func NewSystem(procs ...*ProcessBlob) *System {
	s := &System{
		procs:    make(map[process.ProcessID]*ProcessBlob),
		DenyOpen: make(map[process.ProcessID]bool),
	}
	for _, p := range procs {
		s.Add(p)
	}
	return s
}

func (s *System) Add(p *ProcessBlob) {
	s.procs[p.GetPID()] = p
}

func (s *System) FindAllProcesses() ([]process.ProcessInfo, error) {
	out := make([]process.ProcessInfo, 0, len(s.procs))
	for pid, p := range s.procs {
		out = append(out, process.ProcessInfo{PID: pid, Name: p.Name(), Threads: 1})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

func (s *System) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	all, err := s.FindAllProcesses()
	if err != nil {
		return nil, err
	}
	return process.MatchProcessesByName(all, name), nil
}

func (s *System) FindProcessByPID(pid process.ProcessID) (*process.ProcessInfo, error) {
	p, ok := s.procs[pid]
	if !ok {
		return nil, fmt.Errorf("%w: pid %d", process.ErrProcessNotFound, pid)
	}
	return &process.ProcessInfo{PID: pid, Name: p.Name(), Threads: 1}, nil
}

func (s *System) FindModules(pid process.ProcessID) ([]process.ModuleInfo, error) {
	p, ok := s.procs[pid]
	if !ok {
		return nil, fmt.Errorf("%w: pid %d", process.ErrProcessNotFound, pid)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]process.ModuleInfo, len(p.modules))
	copy(out, p.modules)
	return out, nil
}

func (s *System) FindModule(pid process.ProcessID, name string) (*process.ModuleInfo, error) {
	modules, err := s.FindModules(pid)
	if err != nil {
		return nil, err
	}
	return process.MatchModuleByName(modules, name)
}

func (s *System) OpenProcess(pid process.ProcessID) (process.Handle, error) {
	s.OpenCalls++
	p, ok := s.procs[pid]
	if !ok {
		return nil, fmt.Errorf("OpenProcess %d: %w", pid, ErrNoAccess)
	}
	if s.DenyOpen[pid] {
		return nil, fmt.Errorf("OpenProcess %d: access is denied", pid)
	}
	p.Reopen()
	return p, nil
}

func (s *System) EnableDebugPrivilege() error {
	s.PrivilegeCalls++
	return s.PrivilegeErr
}
