package terminal

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"memtool/config"
	"memtool/engine"
	"memtool/process"
	"memtool/process/memory_map"
	"memtool/process_blob"
)

const (
	moduleBase process.ProcessMemoryAddress = 0x7FF600000000
	heapBase   process.ProcessMemoryAddress = 0x1000000
)

type fixture struct {
	blob    *process_blob.ProcessBlob
	session *Session
	out     *bytes.Buffer
	cmds    *Commands
}

// newFixture opens game.exe: +0x10 of the module points at a heap block
// holding an int32 1337 at +0x20 and "player one" at +0x40.
func newFixture(t *testing.T, conf *config.Config) *fixture {
	t.Helper()
	blob := process_blob.NewProcessBlob(4242, "game.exe", process.ArchitectureX64).
		AddModule("game.exe", moduleBase, 0x1000).
		Map(heapBase, 0x1000, memory_map.PageReadWrite)
	blob.PokePointer(moduleBase.Add(0x10), heapBase)
	blob.Poke(heapBase.Add(0x20), process.Bytes(int32(1337)))
	blob.Poke(heapBase.Add(0x40), []byte("player one\x00"))
	blob.Poke(moduleBase.Add(0x100), []byte{0x55, 0x48, 0x89, 0xE5})

	sys := process_blob.NewSystem(blob, process_blob.NewProcessBlob(7, "explorer.exe", process.ArchitectureX64))
	eng, err := engine.Open(sys, process.Target{Name: "game.exe"})
	if err != nil {
		t.Fatalf("expected open to succeed - got %v", err)
	}
	t.Cleanup(func() { eng.Close() })

	out := &bytes.Buffer{}
	return &fixture{
		blob:    blob,
		session: NewSession(sys, eng, conf, filepath.Join(t.TempDir(), "config.yml"), out, false),
		out:     out,
		cmds:    NewCommands(),
	}
}

func (f *fixture) call(t *testing.T, line string) string {
	t.Helper()
	f.out.Reset()
	if err := f.cmds.Call(line, f.session); err != nil {
		t.Fatalf("expected %q to succeed - got %v", line, err)
	}
	return f.out.String()
}

func (f *fixture) fail(t *testing.T, line string) error {
	t.Helper()
	f.out.Reset()
	err := f.cmds.Call(line, f.session)
	if err == nil {
		t.Fatalf("expected %q to fail - got output %q", line, f.out.String())
	}
	return err
}

func TestReadWriteCommands(t *testing.T) {
	f := newFixture(t, nil)

	if out := f.call(t, "read i32 0x1000020"); out != "0x1000020 i32 = 1337\n" {
		t.Fatalf("unexpected read output %q", out)
	}

	f.call(t, "write f32 0x1000030 2.5")
	if out := f.call(t, "r float 0x1000030"); out != "0x1000030 f32 = 2.5\n" {
		t.Fatalf("unexpected read output %q", out)
	}

	f.call(t, "write u16 0x1000030 0xBEEF")
	if out := f.call(t, "read word 0x1000030"); out != "0x1000030 u16 = 48879 (0xBEEF)\n" {
		t.Fatalf("unexpected read output %q", out)
	}

	if out := f.call(t, "ptr game.exe+0x10"); out != "0x7FF600000010 -> 0x1000000\n" {
		t.Fatalf("unexpected ptr output %q", out)
	}
	if out := f.call(t, "read ptr game.exe+0x10"); !strings.Contains(out, "u64 = 16777216 (0x1000000)") {
		t.Fatalf("unexpected ptr read output %q", out)
	}
}

func TestCommandErrors(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.fail(t, "read i32"); !strings.Contains(err.Error(), "expected 2, actual 1") {
		t.Fatalf("expected an argument count error - got %v", err)
	}
	if err := f.fail(t, "read i128 0x10"); !strings.Contains(err.Error(), "unknown type") {
		t.Fatalf("expected an unknown type error - got %v", err)
	}
	if err := f.fail(t, "write u8 0x1000000 256"); !strings.Contains(err.Error(), "invalid u8 value") {
		t.Fatalf("expected a range error - got %v", err)
	}
	if err := f.fail(t, "read u32 missing.dll+4"); !errors.Is(err, process.ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound - got %v", err)
	}
	if err := f.fail(t, "read u32 0x5000"); !errors.Is(err, process.ErrOSTransfer) {
		t.Fatalf("expected ErrOSTransfer - got %v", err)
	}
	if err := f.fail(t, "frobnicate"); !strings.Contains(err.Error(), "command not available") {
		t.Fatalf("expected unknown command error - got %v", err)
	}
	if err := f.fail(t, `read "u32`); !strings.Contains(err.Error(), "parse") {
		t.Fatalf("expected a quoting error - got %v", err)
	}

	// the engine stays usable after failures
	f.call(t, "read i32 0x1000020")
}

func TestCommandsWithoutTarget(t *testing.T) {
	sys := process_blob.NewSystem(
		process_blob.NewProcessBlob(4242, "game.exe", process.ArchitectureX64),
		process_blob.NewProcessBlob(7, "explorer.exe", process.ArchitectureX64),
	)
	out := &bytes.Buffer{}
	s := NewSession(sys, nil, nil, "", out, false)
	cmds := NewCommands()

	if err := cmds.Call("ps game", s); err != nil {
		t.Fatal(err)
	}
	exp := "" +
		" PID  PPID  THREADS  NAME\n" +
		"----  ----  -------  --------\n" +
		"4242     0        1  game.exe\n"
	if out.String() != exp {
		t.Fatalf("expected\n%s\n- got\n%s", exp, out.String())
	}

	if err := cmds.Call("read u32 0x10", s); !errors.Is(err, process.ErrProcessNotOpen) {
		t.Fatalf("expected ErrProcessNotOpen - got %v", err)
	}
}

func TestModuleCommands(t *testing.T) {
	f := newFixture(t, nil)

	if out := f.call(t, "module GAME.EXE"); out != "game.exe base=0x7FF600000000 end=0x7FF600001000 size=0x1000\n" {
		t.Fatalf("unexpected module output %q", out)
	}

	out := f.call(t, "modules")
	if !strings.Contains(out, "game.exe  0x7FF600000000  0x7FF600001000  0x1000  C:\\sim\\game.exe") {
		t.Fatalf("unexpected modules output\n%s", out)
	}

	out = f.call(t, "regions")
	if !strings.Contains(out, "0x1000000") || !strings.Contains(out, "0x7FF600000000") {
		t.Fatalf("expected both regions - got\n%s", out)
	}
	out = f.call(t, "regions game.exe+0x10")
	if strings.Contains(out, "0x1000000") || !strings.Contains(out, "r-x") {
		t.Fatalf("expected only the image region - got\n%s", out)
	}
}

func TestStringAndDumpCommands(t *testing.T) {
	limit := 6
	f := newFixture(t, &config.Config{MaxStringLen: &limit, DumpWidth: 8})

	if out := f.call(t, "str 0x1000040"); out != "0x1000040 \"player\"\n" {
		t.Fatalf("expected the config bound to apply - got %q", out)
	}
	if out := f.call(t, "str --max 64 0x1000040"); out != "0x1000040 \"player one\"\n" {
		t.Fatalf("expected --max to override the config - got %q", out)
	}

	out := f.call(t, "dump 0x1000040 16")
	exp := "" +
		"000001000040  70 6c 61 79 65 72 20 6f  |player o|\n" +
		"000001000048  6e 65 00 00 00 00 00 00  |ne......|\n"
	if out != exp {
		t.Fatalf("expected\n%s- got\n%s", exp, out)
	}

	out = f.call(t, "dump -p game.exe+0x10 8")
	if !strings.Contains(out, "->0x1000000") {
		t.Fatalf("expected a pointer annotation - got %q", out)
	}
}

func TestCodeCommands(t *testing.T) {
	f := newFixture(t, nil)

	if out := f.call(t, "asm game.exe+0x100 4"); out != "0x7FF600000100  55 48 89 E5\n" {
		t.Fatalf("unexpected asm output %q", out)
	}

	f.call(t, "patch game.exe+0x100 90 90 C3")
	if got := f.blob.Peek(moduleBase.Add(0x100), 4); !bytes.Equal(got, []byte{0x90, 0x90, 0xC3, 0xE5}) {
		t.Fatalf("expected patched bytes - got % X", got)
	}
	if p := f.blob.Protection(moduleBase.Add(0x100)); p != memory_map.PageExecuteRead {
		t.Fatalf("expected protection restored to %s - got %s", memory_map.PageExecuteRead, p)
	}

	f.call(t, "nop game.exe+0x103 1")
	if got := f.blob.Peek(moduleBase.Add(0x103), 1); got[0] != 0x90 {
		t.Fatalf("expected NOP - got % X", got)
	}

	if err := f.fail(t, "patch game.exe+0x100 9"); !errors.Is(err, process.ErrInvalidHexPatch) {
		t.Fatalf("expected ErrInvalidHexPatch - got %v", err)
	}
}

func TestChainCommand(t *testing.T) {
	conf := &config.Config{Chains: map[string]config.Chain{
		"score": {Base: "game.exe+0x10", Offsets: []string{"0", "0x20"}, Type: "i32"},
	}}
	f := newFixture(t, conf)

	if out := f.call(t, "chain game.exe 0x10 0x20"); out != "0x1000020\n" {
		t.Fatalf("unexpected chain output %q", out)
	}
	if out := f.call(t, "chain game.exe 0x10 0x20 --type i32"); out != "0x1000020 i32 = 1337\n" {
		t.Fatalf("unexpected chain output %q", out)
	}
	if out := f.call(t, "chain --load score"); out != "0x1000020 i32 = 1337\n" {
		t.Fatalf("unexpected named chain output %q", out)
	}

	out := f.call(t, "chain --trace game.exe 0x10 0x20")
	if !strings.Contains(out, "[1] [0x7FF600000000 + 0x10] = 0x1000000") {
		t.Fatalf("expected a trace line - got %q", out)
	}

	err := f.fail(t, "chain game.exe 0x20 0x0")
	if depth, ok := process.ChainDepth(err); !ok || depth != 1 || !errors.Is(err, process.ErrNullPointerInChain) {
		t.Fatalf("expected a null pointer at depth 1 - got %v", err)
	}

	if err := f.fail(t, "chain --load nope"); !strings.Contains(err.Error(), "no chain named") {
		t.Fatalf("expected a missing chain error - got %v", err)
	}

	f.call(t, "chain --save hp game.exe 0x10 0x20")
	saved, err := config.LoadConfig(f.session.confFile)
	if err != nil {
		t.Fatal(err)
	}
	if c := saved.Chains["hp"]; c.Base != "game.exe" || strings.Join(c.Offsets, ",") != "0x10,0x20" {
		t.Fatalf("expected the saved chain - got %+v", c)
	}
}

func TestFindCommand(t *testing.T) {
	f := newFixture(t, nil)

	out := f.call(t, "find game.exe i32 1337 --depth 2 --size 0x40")
	if !strings.Contains(out, "game.exe [0x10 0x20] -> 0x1000020") {
		t.Fatalf("expected the pointer path - got %q", out)
	}
}

func TestHelp(t *testing.T) {
	f := newFixture(t, nil)

	out := f.call(t, "help")
	for _, cmd := range f.cmds.All() {
		if !strings.Contains(out, cmd.Name()) {
			t.Fatalf("expected %s in the help output", cmd.Name())
		}
	}

	out = f.call(t, "help str")
	if !strings.Contains(out, "str <addr>") || !strings.Contains(out, "--max") {
		t.Fatalf("unexpected help output %q", out)
	}

	var exitErr ExitRequestError
	if err := f.cmds.Call("exit", f.session); !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitRequestError - got %v", err)
	}
}
