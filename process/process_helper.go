package process

import (
	"fmt"
	"strconv"
)

// Target selects a process by executable name or by PID. Name wins when
// both are set.
type Target struct {
	PID  ProcessID
	Name string
}

// ParseTarget treats an all-digit string as a PID and anything else as a name.
func ParseTarget(s string) Target {
	if pid, err := strconv.Atoi(s); err == nil && pid > 0 {
		return Target{PID: ProcessID(pid)}
	}
	return Target{Name: s}
}

func (t Target) String() string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("pid %d", t.PID)
}

// FindTarget resolves t against the running processes. When several
// processes share the name, the lowest PID is picked for determinism.
func FindTarget(finder ProcessFinder, t Target) (*ProcessInfo, error) {
	if t.Name != "" {
		ps, err := finder.FindProcessByName(t.Name)
		if err != nil {
			return nil, fmt.Errorf("find process %q: %w", t.Name, err)
		}
		if len(ps) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrProcessNotFound, t.Name)
		}
		minIdx := 0
		for i := 1; i < len(ps); i++ {
			if ps[i].PID < ps[minIdx].PID {
				minIdx = i
			}
		}
		p := ps[minIdx]
		return &p, nil
	}

	if t.PID <= 0 {
		return nil, fmt.Errorf("%w: no name or pid given", ErrProcessNotFound)
	}
	p, err := finder.FindProcessByPID(t.PID)
	if err != nil {
		return nil, fmt.Errorf("find process %d: %w", t.PID, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: pid %d", ErrProcessNotFound, t.PID)
	}
	return p, nil
}
