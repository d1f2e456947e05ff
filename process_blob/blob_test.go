package process_blob

import (
	"bytes"
	"errors"
	"testing"

	"memtool/process"
	"memtool/process/memory_map"
)

func TestBlobReadWriteProtection(t *testing.T) {
	blob := NewProcessBlob(1, "t.exe", process.ArchitectureX64).
		Map(0x1000, 0x1000, memory_map.PageReadWrite).
		Map(0x2000, 0x1000, memory_map.PageReadOnly).
		Map(0x3000, 0x1000, memory_map.PageNoAccess)

	if n, err := blob.WriteProcessMemory(0x1FFE, []byte{1, 2}); err != nil || n != 2 {
		t.Fatalf("expected a 2 byte write - got %d, %v", n, err)
	}

	// the second byte lands on the read-only page
	if n, err := blob.WriteProcessMemory(0x1FFF, []byte{9, 9}); !errors.Is(err, ErrNoAccess) || n != 0 {
		t.Fatalf("expected ErrNoAccess and nothing written - got %d, %v", n, err)
	}
	if got := blob.Peek(0x1FFE, 2); !bytes.Equal(got, []byte{1, 2}) {
		t.Fatalf("expected 0x0102 untouched - got 0x%x", got)
	}

	buf := make([]byte, 4)
	if n, err := blob.ReadProcessMemory(0x2FFE, buf); !errors.Is(err, ErrPartialCopy) || n != 2 {
		t.Fatalf("expected a partial copy of 2 bytes - got %d, %v", n, err)
	}
}

func TestBlobVirtualProtect(t *testing.T) {
	blob := NewProcessBlob(1, "t.exe", process.ArchitectureX64).
		Map(0x1000, 0x2000, memory_map.PageReadOnly)

	old, err := blob.VirtualProtect(0x1800, 0x1000, memory_map.PageExecuteReadWrite)
	if err != nil || old != memory_map.PageReadOnly {
		t.Fatalf("expected previous %s - got %s, %v", memory_map.PageReadOnly, old, err)
	}
	if blob.Protection(0x1000) != memory_map.PageExecuteReadWrite || blob.Protection(0x2000) != memory_map.PageExecuteReadWrite {
		t.Fatalf("expected both pages covered by the range to change")
	}

	if _, err := blob.VirtualProtect(0x2800, 0x1000, memory_map.PageReadOnly); !errors.Is(err, ErrNoAccess) {
		t.Fatalf("expected a range running into unmapped memory to fail - got %v", err)
	}
}

func TestBlobRegionsCoalesce(t *testing.T) {
	blob := NewProcessBlob(1, "t.exe", process.ArchitectureX64).
		Map(0x1000, 0x2000, memory_map.PageReadWrite).
		Map(0x3000, 0x1000, memory_map.PageReadOnly).
		Map(0x8000, 0x1000, memory_map.PageReadOnly)

	regions, err := blob.GetMemoryMap()
	if err != nil {
		t.Fatal(err)
	}
	if len(regions) != 3 {
		t.Fatalf("expected 3 regions - got %d: %v", len(regions), regions)
	}
	if regions[0].Address != 0x1000 || regions[0].Size != 0x2000 {
		t.Fatalf("expected the two read-write pages merged - got %s", regions[0])
	}

	item, err := blob.VirtualQuery(0x3800)
	if err != nil || item.Address != 0x3000 || item.Protect != memory_map.PageReadOnly {
		t.Fatalf("expected the read-only page - got %s, %v", item, err)
	}
	if _, err := blob.VirtualQuery(0x5000); err == nil {
		t.Fatalf("expected unmapped query to fail")
	}
}

func TestBlobClose(t *testing.T) {
	blob := NewProcessBlob(1, "t.exe", process.ArchitectureX64).Map(0x1000, 0x1000, memory_map.PageReadWrite)

	blob.Close()
	blob.Close()
	if s := blob.Stats(); s.Closes != 1 {
		t.Fatalf("expected one close - got %d", s.Closes)
	}
	if _, err := blob.ReadProcessMemory(0x1000, make([]byte, 1)); !errors.Is(err, ErrHandleClosed) {
		t.Fatalf("expected a closed handle error - got %v", err)
	}
}

func TestSystem(t *testing.T) {
	game := NewProcessBlob(20, "game.exe", process.ArchitectureX86).AddModule("game.exe", 0x400000, 0x3000)
	sys := NewSystem(game, NewProcessBlob(10, "shell.exe", process.ArchitectureX64))

	all, _ := sys.FindAllProcesses()
	if len(all) != 2 || all[0].PID != 10 {
		t.Fatalf("expected 2 processes sorted by pid - got %+v", all)
	}

	m, err := sys.FindModule(20, "GAME.EXE")
	if err != nil || m.End != 0x403000 {
		t.Fatalf("expected game.exe ending at 0x403000 - got %+v, %v", m, err)
	}
	if game.Protection(0x401000) != memory_map.PageExecuteRead {
		t.Fatalf("expected the image mapped as code")
	}

	sys.DenyOpen[20] = true
	if _, err := sys.OpenProcess(20); err == nil {
		t.Fatalf("expected OpenProcess to be denied")
	}
}
