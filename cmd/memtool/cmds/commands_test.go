package cmds

import (
	"testing"

	"memtool/config"
	"memtool/process"
	"memtool/process/memory_map"
	"memtool/process_blob"
	"memtool/terminal"
)

func TestCommandTree(t *testing.T) {
	root := New()

	for _, c := range terminal.NewCommands().All() {
		sub, _, err := root.Find([]string{c.Name()})
		if c.ShellOnly {
			if err == nil && sub != root {
				t.Fatalf("expected shell-only command %s to be hidden from the CLI", c.Name())
			}
			continue
		}
		if err != nil || sub.Name() != c.Name() {
			t.Fatalf("expected subcommand %s - got %v, %v", c.Name(), sub, err)
		}
	}

	if sub, _, err := root.Find([]string{"r"}); err != nil || sub.Name() != "read" {
		t.Fatalf("expected alias r to find read - got %v, %v", sub, err)
	}
	if sub, _, err := root.Find([]string{"shell"}); err != nil || sub.Name() != "shell" {
		t.Fatalf("expected the shell command - got %v, %v", sub, err)
	}

	chain, _, _ := root.Find([]string{"chain"})
	for _, flag := range []string{"load", "type", "trace", "save"} {
		if chain.Flags().Lookup(flag) == nil {
			t.Fatalf("expected chain to have --%s", flag)
		}
	}
}

func TestArchFlag(t *testing.T) {
	var a archValue
	if err := a.Set("x86"); err != nil || process.Architecture(a) != process.ArchitectureX86 {
		t.Fatalf("expected x86 - got %s, %v", a.String(), err)
	}
	if err := a.Set("AMD64"); err != nil || process.Architecture(a) != process.ArchitectureX64 {
		t.Fatalf("expected x64 - got %s, %v", a.String(), err)
	}
	if err := a.Set("arm"); err == nil {
		t.Fatalf("expected an error for arm")
	}
	if a.Type() != "arch" {
		t.Fatalf("expected type arch - got %s", a.Type())
	}
}

func TestSelectTarget(t *testing.T) {
	defer func() { name, pid = "", 0 }()

	conf := &config.Config{Target: "1234"}
	if got := selectTarget(conf); got.PID != 1234 || got.Name != "" {
		t.Fatalf("expected pid 1234 from the config - got %+v", got)
	}

	pid = 99
	if got := selectTarget(conf); got.PID != 99 {
		t.Fatalf("expected --pid to win over the config - got %+v", got)
	}

	name = "game.exe"
	if got := selectTarget(conf); got.Name != "game.exe" {
		t.Fatalf("expected --name to win - got %+v", got)
	}

	name, pid = "", 0
	if got := selectTarget(&config.Config{}); got != (process.Target{}) {
		t.Fatalf("expected no target - got %+v", got)
	}
}

func TestOpenSystemFromDump(t *testing.T) {
	defer func() { dumpDir, name, pid = "", "", 0 }()

	blob := process_blob.NewProcessBlob(31, "game.exe", process.ArchitectureX64).
		Map(0x1000000, 0x1000, memory_map.PageReadWrite)
	dumpDir = t.TempDir()
	if _, err := process_blob.SaveDump(dumpDir, blob, process_blob.DumpMetadata{PID: 31, Name: "game.exe", Arch: "x64"}); err != nil {
		t.Fatal(err)
	}

	sys, target, err := openSystem(&config.Config{Target: "other.exe"})
	if err != nil {
		t.Fatalf("expected the dump to load - got %v", err)
	}
	if target.PID != 31 {
		t.Fatalf("expected the snapshot to be the target - got %+v", target)
	}
	if info, err := sys.FindProcessByPID(31); err != nil || info.Name != "game.exe" {
		t.Fatalf("expected game.exe in the offline system - got %+v, %v", info, err)
	}

	name = "game.exe"
	if _, target, _ := openSystem(&config.Config{}); target.Name != "game.exe" {
		t.Fatalf("expected --name to win - got %+v", target)
	}

	dumpDir = t.TempDir()
	if _, _, err := openSystem(&config.Config{}); err == nil {
		t.Fatalf("expected an error for an empty snapshot directory")
	}
}
