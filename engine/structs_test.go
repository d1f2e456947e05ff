package engine

import (
	"errors"
	"testing"

	"memtool/pod"
	"memtool/process"
	"memtool/process_blob"
	"memtool/search"
)

type entity struct {
	ID     uint32
	Health int32
	Name   [8]byte `pod:"char_array"`
	Next   uint64  `pod:"valid_pointer"`
}

func TestReadWriteStruct(t *testing.T) {
	e, blob := openGame(t)
	raw := entity{ID: 3, Health: 50, Next: 0xBAD000}
	copy(raw.Name[:], "orc\x00xx")
	blob.Poke(heapBase.Add(0x100), pod.Bytes(raw))

	got, err := ReadStruct[entity](e, heapBase.Add(0x100))
	if err != nil {
		t.Fatalf("expected read to succeed - got %v", err)
	}
	if got.ID != 3 || got.Health != 50 || pod.CharArray(got.Name[:]) != "orc" || got.Name[5] != 0 {
		t.Fatalf("unexpected entity %+v", got)
	}
	if got.Next != 0 {
		t.Fatalf("expected an unmapped Next to be zeroed - got 0x%X", got.Next)
	}

	got.Health = 75
	got.Next = uint64(heapBase)
	if err := WriteStruct(e, heapBase.Add(0x100), got); err != nil {
		t.Fatalf("expected write to succeed - got %v", err)
	}
	again, err := ReadStruct[entity](e, heapBase.Add(0x100))
	if err != nil || again.Health != 75 || again.Next != uint64(heapBase) {
		t.Fatalf("expected the written entity back - got %+v, %v", again, err)
	}

	list, err := ReadStructs[entity](e, heapBase.Add(0x100), 2)
	if err != nil || len(list) != 2 || list[0].ID != 3 || list[1].ID != 0 {
		t.Fatalf("unexpected entity list %+v, %v", list, err)
	}
}

func TestReadStructErrors(t *testing.T) {
	e, _ := openGame(t)

	if _, err := ReadStruct[entity](e, heapBase.Add(0x2000-8)); err == nil {
		t.Fatalf("expected a read running off the heap to fail")
	}
	if _, err := ReadStruct[struct{ S string }](e, heapBase); !errors.Is(err, pod.ErrNotPOD) {
		t.Fatalf("expected ErrNotPOD - got %v", err)
	}

	e.Close()
	if _, err := ReadStruct[entity](e, heapBase); !errors.Is(err, process.ErrProcessNotOpen) {
		t.Fatalf("expected ErrProcessNotOpen after close - got %v", err)
	}
}

func TestEngineReadPointerList(t *testing.T) {
	e, blob := openGame(t)
	blob.PokePointer(heapBase.Add(0x200), heapBase.Add(0x10))
	blob.PokePointer(heapBase.Add(0x208), 0xFFFF)
	blob.PokePointer(heapBase.Add(0x210), moduleBase)

	ptrs, err := e.ReadPointerList(heapBase.Add(0x200), 4)
	if err != nil || len(ptrs) != 2 || ptrs[0] != heapBase.Add(0x10) || ptrs[1] != moduleBase {
		t.Fatalf("expected [0x1000010 0x7FF600000000] - got %v, %v", ptrs, err)
	}
	if ptrs, err := e.ReadPointerList(heapBase, 0); err != nil || ptrs != nil {
		t.Fatalf("expected nothing for a zero count - got %v, %v", ptrs, err)
	}
}

func TestScan(t *testing.T) {
	e, blob := openGame(t)
	blob.Poke(moduleBase.Add(0x400), []byte{0x48, 0x8B, 0x05, 0x11, 0x22})
	blob.Poke(heapBase.Add(0x30), []byte{0x48, 0x8B, 0x05, 0x99, 0x22})
	aob, _ := search.ParseAOB("48 8B 05 ?? 22")

	all, err := e.Scan(aob, search.WithJobs(2))
	if err != nil || len(all) != 2 || all[0] != heapBase.Add(0x30) || all[1] != moduleBase.Add(0x400) {
		t.Fatalf("expected both matches sorted - got %v, %v", all, err)
	}

	inModule, err := e.ScanModule("game.exe", aob)
	if err != nil || len(inModule) != 1 || inModule[0] != moduleBase.Add(0x400) {
		t.Fatalf("expected the module match - got %v, %v", inModule, err)
	}
	if _, err := e.ScanModule("missing.dll", aob); !errors.Is(err, process.ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound - got %v", err)
	}

	first, err := e.ScanFirst(aob)
	if err != nil || first != heapBase.Add(0x30) {
		t.Fatalf("expected the lowest match - got %s, %v", first, err)
	}

	missing, _ := search.ParseAOB("13 37 13 37 13 37")
	if _, err := e.ScanFirst(missing); !errors.Is(err, search.ErrPatternNotFound) {
		t.Fatalf("expected ErrPatternNotFound - got %v", err)
	}
}

func TestSaveDumpRoundTrip(t *testing.T) {
	e, blob := openGame(t)
	blob.Poke(heapBase.Add(0x20), process.Bytes(int32(1337)))

	dir := t.TempDir()
	stats, err := e.SaveDump(dir)
	if err != nil || stats.Saved != 2 {
		t.Fatalf("expected two saved regions - got %+v, %v", stats, err)
	}

	loaded, err := process_blob.LoadDump(dir)
	if err != nil {
		t.Fatalf("expected load to succeed - got %v", err)
	}
	offline, err := Open(process_blob.NewSystem(loaded), process.Target{Name: "game.exe"})
	if err != nil {
		t.Fatalf("expected the dump to open - got %v", err)
	}
	defer offline.Close()

	v, err := ReadPath[int32](offline, moduleBase, 0x10, 0x20)
	if err != nil || v != 1337 {
		t.Fatalf("expected 1337 through the saved chain - got %d, %v", v, err)
	}
	if offline.Architecture() != process.ArchitectureX64 {
		t.Fatalf("expected x64 - got %s", offline.Architecture())
	}
}
