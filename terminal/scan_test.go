package terminal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"memtool/process"
	"memtool/process_blob"
)

func TestScanCommand(t *testing.T) {
	f := newFixture(t, nil)

	if out := f.call(t, "scan 55 48 ?? E5"); out != "0x7FF600000100\n1 matches for 55 48 ?? E5\n" {
		t.Fatalf("unexpected scan output %q", out)
	}
	if out := f.call(t, "aob -j 1 --module game.exe 70 6c 61 79"); out != "0 matches for 70 6C 61 79\n" {
		t.Fatalf("expected the heap string to be outside the module - got %q", out)
	}
	if out := f.call(t, "scan 70 6c 61 79"); !strings.HasPrefix(out, "0x1000040\n") {
		t.Fatalf("expected the heap string - got %q", out)
	}

	out := f.call(t, "scan --context 4 55 48 89 E5")
	if !strings.Contains(out, "7ff6000000fc  00 00 00 00 55 48 89 e5 00 00 00 00") {
		t.Fatalf("expected a context dump around the match - got %q", out)
	}

	f.fail(t, "scan 4G")
	f.fail(t, "scan --module missing.dll 90")
	f.fail(t, "scan --context -1 90")
}

func TestPtrsCommand(t *testing.T) {
	f := newFixture(t, nil)
	f.blob.PokePointer(heapBase.Add(0x100), moduleBase)
	f.blob.PokePointer(heapBase.Add(0x108), 0x1234)
	f.blob.PokePointer(heapBase.Add(0x110), heapBase.Add(0x40))

	exp := "[0] 0x7FF600000000\n[1] 0x1000040\n2 of 4 pointers valid\n"
	if out := f.call(t, "ptrs 0x1000100 4"); out != exp {
		t.Fatalf("expected %q - got %q", exp, out)
	}
	f.fail(t, "ptrs 0x1000100 lots")
}

func TestSaveAndLoadCommands(t *testing.T) {
	f := newFixture(t, nil)
	file := filepath.Join(t.TempDir(), "player.bin")

	out := f.call(t, fmt.Sprintf("save 0x1000040 10 %q", file))
	if out != fmt.Sprintf("saved 10 bytes at 0x1000040 to %s\n", file) {
		t.Fatalf("unexpected save output %q", out)
	}
	data, err := os.ReadFile(file)
	if err != nil || string(data) != "player one" {
		t.Fatalf("expected the saved bytes - got %q, %v", data, err)
	}

	out = f.call(t, fmt.Sprintf("load %q 0x1000200", file))
	if out != fmt.Sprintf("loaded 10 bytes from %s to 0x1000200\n", file) {
		t.Fatalf("unexpected load output %q", out)
	}
	if got := f.blob.Peek(heapBase.Add(0x200), 10); !bytes.Equal(got, data) {
		t.Fatalf("expected the file contents in memory - got %q", got)
	}

	// code pages are made writable for the duration of the load
	f.call(t, fmt.Sprintf("load %q game.exe+0x200", file))
	if got := f.blob.Peek(moduleBase.Add(0x200), 10); string(got) != "player one" {
		t.Fatalf("expected the file contents in the image - got %q", got)
	}

	f.fail(t, "load /nonexistent/file 0x1000000")
	f.fail(t, fmt.Sprintf("save 0x5000 16 %q", file))
}

func TestSnapshotCommand(t *testing.T) {
	f := newFixture(t, nil)
	dir := filepath.Join(t.TempDir(), "snap")

	if out := f.call(t, fmt.Sprintf("snapshot %q", dir)); out != fmt.Sprintf("saved 2 regions (8192 bytes) to %s\n", dir) {
		t.Fatalf("unexpected snapshot output %q", out)
	}

	blob, err := process_blob.LoadDump(dir)
	if err != nil {
		t.Fatalf("expected the snapshot to load - got %v", err)
	}
	if got := blob.Peek(heapBase.Add(0x20), 4); !bytes.Equal(got, process.Bytes(int32(1337))) {
		t.Fatalf("expected 1337 in the snapshot - got %x", got)
	}
}
