package process_test

import (
	"errors"
	"testing"

	"memtool/process"
	"memtool/process/memory_map"
	"memtool/process_blob"
)

// chainTarget lays out base -> [+0x8] p1 -> [+0x10] p2, so the chain
// {0x8, 0x10, 0x4} resolves to p2+0x4.
func chainTarget(arch process.Architecture) (*process_blob.ProcessBlob, process.ProcessMemoryAddress) {
	blob := newTarget(arch)
	const p1, p2 = 0x11000, 0x10100

	blob.PokePointer(dataBase.Add(0x8), p1)
	blob.PokePointer(process.ProcessMemoryAddress(p1+0x10), p2)
	return blob, p2 + 0x4
}

func TestResolveEmptyChain(t *testing.T) {
	blob := newTarget(process.ArchitectureX64)

	addr, err := process.ResolvePointerChain(blob, process.ArchitectureX64, 0xDEADBEEF)
	if err != nil {
		t.Fatalf("expected no error - got %v", err)
	}
	if addr != 0xDEADBEEF {
		t.Fatalf("expected 0xDEADBEEF - got %s", addr)
	}
	if n := blob.Stats().Reads; n != 0 {
		t.Fatalf("expected no reads - got %d", n)
	}
}

func TestResolveSingleOffset(t *testing.T) {
	blob := newTarget(process.ArchitectureX64)

	addr, err := process.ResolvePointerChain(blob, process.ArchitectureX64, dataBase, 0x40)
	if err != nil {
		t.Fatalf("expected no error - got %v", err)
	}
	if addr != dataBase+0x40 {
		t.Fatalf("expected %s - got %s", dataBase+0x40, addr)
	}
	if n := blob.Stats().Reads; n != 0 {
		t.Fatalf("expected no dereference - got %d reads", n)
	}
}

func TestResolveChain(t *testing.T) {
	for _, arch := range []process.Architecture{process.ArchitectureX86, process.ArchitectureX64} {
		t.Run(arch.String(), func(t *testing.T) {
			blob, want := chainTarget(arch)

			addr, err := process.ResolvePointerChain(blob, arch, dataBase, 0x8, 0x10, 0x4)
			if err != nil {
				t.Fatalf("expected no error - got %v", err)
			}
			if addr != want {
				t.Fatalf("expected %s - got %s", want, addr)
			}
			if n := blob.Stats().Reads; n != 2 {
				t.Fatalf("expected 2 dereferences - got %d", n)
			}
		})
	}
}

func TestResolveUsesArchitectureWidth(t *testing.T) {
	blob := newTarget(process.ArchitectureX86)
	// a 32-bit pointer followed by bytes that would corrupt a 64-bit read
	blob.Poke(dataBase, []byte{0x00, 0x10, 0x01, 0x00, 0xFF, 0xFF, 0xFF, 0xFF})

	addr, err := process.ResolvePointerChain(blob, process.ArchitectureX86, dataBase, 0, 0x20)
	if err != nil {
		t.Fatalf("expected no error - got %v", err)
	}
	if addr != 0x11020 {
		t.Fatalf("expected 0x11020 - got %s", addr)
	}
}

func TestResolveNullPointer(t *testing.T) {
	blob, _ := chainTarget(process.ArchitectureX64)
	blob.PokePointer(0x11010, 0)

	_, err := process.ResolvePointerChain(blob, process.ArchitectureX64, dataBase, 0x8, 0x10, 0x4)
	if !errors.Is(err, process.ErrNullPointerInChain) {
		t.Fatalf("expected null pointer error - got %v", err)
	}
	if depth, ok := process.ChainDepth(err); !ok || depth != 2 {
		t.Fatalf("expected depth 2 - got %d (%v)", depth, ok)
	}
	if n := blob.Stats().Reads; n != 2 {
		t.Fatalf("expected the walk to stop after 2 reads - got %d", n)
	}
}

func TestResolveReadFailure(t *testing.T) {
	blob, _ := chainTarget(process.ArchitectureX64)
	blob.PokePointer(0x11010, 0x7000000)

	_, err := process.ResolvePointerChain(blob, process.ArchitectureX64, dataBase, 0x8, 0x10, 0x0, 0x4)
	if !errors.Is(err, process.ErrChainRead) {
		t.Fatalf("expected chain read error - got %v", err)
	}
	if errors.Is(err, process.ErrNullPointerInChain) {
		t.Fatalf("read failure must not look like a null pointer - got %v", err)
	}
	if !errors.Is(err, process.ErrOSTransfer) {
		t.Fatalf("expected the read error to be wrapped - got %v", err)
	}
	if depth, _ := process.ChainDepth(err); depth != 3 {
		t.Fatalf("expected depth 3 - got %d", depth)
	}
}

func TestResolveInvalidArchitecture(t *testing.T) {
	blob := newTarget(process.ArchitectureX64)

	if _, err := process.ResolvePointerChain(blob, process.ArchitectureAuto, dataBase, 0x8, 0x0); err == nil {
		t.Fatalf("expected an error for an unresolved architecture")
	}
}

func TestChainResolverTrace(t *testing.T) {
	blob, want := chainTarget(process.ArchitectureX64)

	var hops []process.ChainHop
	r := process.ChainResolver{
		Memory: blob,
		Arch:   process.ArchitectureX64,
		Trace:  func(hop process.ChainHop) { hops = append(hops, hop) },
	}
	addr, err := r.Resolve(dataBase, 0x8, 0x10, 0x4)
	if err != nil || addr != want {
		t.Fatalf("expected %s - got %s, %v", want, addr, err)
	}
	if len(hops) != 2 {
		t.Fatalf("expected 2 hops - got %d", len(hops))
	}
	if hops[0].Depth != 1 || hops[0].Location != dataBase+0x8 || hops[0].Value != 0x11000 {
		t.Fatalf("unexpected first hop %+v", hops[0])
	}
	if hops[1].Depth != 2 || hops[1].Location != 0x11010 || hops[1].Value != 0x10100 {
		t.Fatalf("unexpected second hop %+v", hops[1])
	}
}

func TestReadPath(t *testing.T) {
	blob, target := chainTarget(process.ArchitectureX64)
	blob.Poke(target, process.Bytes(int32(-42)))

	v, err := process.ReadPath[int32](blob, process.ArchitectureX64, dataBase, 0x8, 0x10, 0x4)
	if err != nil {
		t.Fatalf("expected no error - got %v", err)
	}
	if v != -42 {
		t.Fatalf("expected -42 - got %d", v)
	}
}

func TestReadPointer(t *testing.T) {
	blob := newTarget(process.ArchitectureX64)
	blob.Map(0x60000, 0x1000, memory_map.PageReadOnly)
	blob.Poke(0x60000, process.Bytes(uint64(0x7FF600001234)))

	ptr, err := process.ReadPointer(blob, process.ArchitectureX64, 0x60000)
	if err != nil || ptr != 0x7FF600001234 {
		t.Fatalf("expected 0x7FF600001234 - got %s, %v", ptr, err)
	}

	ptr, err = process.ReadPointer(blob, process.ArchitectureX86, 0x60000)
	if err != nil || ptr != 0x00001234 {
		t.Fatalf("expected 0x1234 - got %s, %v", ptr, err)
	}
}
