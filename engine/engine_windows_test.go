//go:build windows

package engine

import (
	"os"
	"path/filepath"
	"testing"

	"memtool/process"
	"memtool/process/memory_map"

	"golang.org/x/sys/windows"
)

func TestOpenLiveSelf(t *testing.T) {
	sys, err := DefaultSystem()
	if err != nil {
		t.Fatal(err)
	}
	e, err := Open(sys, process.Target{PID: process.ProcessID(windows.GetCurrentProcessId())})
	if err != nil {
		t.Fatalf("expected to open the current process - got %v", err)
	}
	defer e.Close()

	exe, _ := os.Executable()
	m, err := e.GetModule(filepath.Base(exe))
	if err != nil || m.End != m.Base+process.ProcessMemoryAddress(m.Size) {
		t.Fatalf("expected the test binary module - got %+v, %v", m, err)
	}

	addr, err := windows.VirtualAlloc(0, 0x1000, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READ)
	if err != nil {
		t.Fatalf("VirtualAlloc failed: %v", err)
	}
	defer windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
	code := process.ProcessMemoryAddress(addr)

	if err := e.NopFill(code, 4); err != nil {
		t.Fatalf("expected the NOP fill to succeed - got %v", err)
	}
	if got, err := e.ReadInstructions(code, 4); err != nil || got != "90 90 90 90" {
		t.Fatalf("expected 90 90 90 90 - got %q, %v", got, err)
	}
	if p, err := e.QueryProtection(code); err != nil || p != memory_map.PageExecuteRead {
		t.Fatalf("expected %s after the patch - got %s, %v", memory_map.PageExecuteRead, p, err)
	}
}
