// Package engine is the remote memory access engine: one Engine owns one
// open process handle and the architecture of the target, and exposes typed
// reads and writes, raw buffers, strings, instruction patches, pointer
// chains and module lookups on top of it.
//
// An Engine is meant for a single caller. Close is the only operation that
// is safe to race with the others.
package engine

import (
	"fmt"
	"runtime"
	"sync"

	"memtool/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// DefaultStringMax is the read bound ReadString uses when given zero.
const DefaultStringMax = 256

// Option configures an Engine
type Option func(*Engine)

// WithArchitecture fixes the target architecture. ArchitectureAuto (the
// default) queries the process instead.
func WithArchitecture(arch process.Architecture) Option {
	return func(e *Engine) {
		e.arch = arch
	}
}

// WithDebug turns on per-operation trace logging for this Engine.
func WithDebug(debug bool) Option {
	return func(e *Engine) {
		e.debug = debug
	}
}

// WithLogger replaces the Engine's logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// Engine is an open target process.
type Engine struct {
	sys    process.System
	info   process.ProcessInfo
	arch   process.Architecture
	debug  bool
	log    *logger.Logger
	mu     sync.Mutex
	handle process.Handle
}

// Open locates target through sys, opens it and settles the architecture.
// Failure to obtain the debug privilege is logged and otherwise ignored.
// Any error after the handle was acquired closes it before returning.
func Open(sys process.System, target process.Target, options ...Option) (*Engine, error) {
	e := &Engine{sys: sys}
	for _, opt := range options {
		opt(e)
	}

	if e.arch != process.ArchitectureAuto && !e.arch.IsValid() {
		return nil, fmt.Errorf("unsupported architecture %s", e.arch)
	}

	privErr := sys.EnableDebugPrivilege()

	info, err := process.FindTarget(sys, target)
	if err != nil {
		return nil, err
	}
	e.info = *info

	if e.log == nil {
		e.log = logger.NewLogger(coloransi.Color(coloransi.ColorTeal, coloransi.ColorOrange, fmt.Sprintf("engine-%d", info.PID)))
	}
	if privErr != nil {
		e.log.Warn("Debug privilege not available, continuing without it: ", privErr)
	}

	handle, err := sys.OpenProcess(info.PID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (pid %d): %w", process.ErrHandleAcquisitionFailed, info.Name, info.PID, err)
	}
	e.handle = handle

	if e.arch == process.ArchitectureAuto {
		arch, err := handle.DetectArchitecture()
		if err != nil {
			e.log.Warn("Architecture detection inconclusive, assuming x64: ", err)
			arch = process.ArchitectureX64
		}
		if !arch.IsValid() {
			handle.Close()
			e.handle = nil
			return nil, fmt.Errorf("unsupported architecture %s reported for pid %d", arch, info.PID)
		}
		e.arch = arch
	}

	runtime.SetFinalizer(e, (*Engine).Close)

	e.log.Infoln("Opened", info.Name, "pid", int(info.PID), "arch", e.arch.String())
	return e, nil
}

// Close releases the process handle. Subsequent calls do nothing, and every
// other operation returns process.ErrProcessNotOpen afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle == nil {
		return nil
	}

	err := e.handle.Close()
	e.handle = nil
	runtime.SetFinalizer(e, nil)

	e.log.Infoln("Closed pid", int(e.info.PID))
	return err
}

func (e *Engine) mem() (process.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle == nil {
		return nil, process.ErrProcessNotOpen
	}
	return e.handle, nil
}

func (e *Engine) PID() process.ProcessID {
	return e.info.PID
}

// ProcessName is the executable name the target was found under.
func (e *Engine) ProcessName() string {
	return e.info.Name
}

func (e *Engine) Architecture() process.Architecture {
	return e.arch
}

func (e *Engine) Debug() bool {
	return e.debug
}

// IsOpen reports whether Close has not been called yet.
func (e *Engine) IsOpen() bool {
	_, err := e.mem()
	return err == nil
}

func (e *Engine) debugln(args ...interface{}) {
	if e.debug {
		e.log.Debugln(args...)
	}
}

func (e *Engine) reportWrite(addr process.ProcessMemoryAddress, size int, report process.WriteReport) {
	if report.Forced {
		e.debugln("Forced write at", addr, "of", size, "bytes, previous protection", report.Previous)
	}
	if report.RestoreErr != nil {
		e.log.Warn("Protection restore failed at ", addr, ", range may stay ", process.FallbackProtection, ": ", report.RestoreErr)
	}
}
