package terminal

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"text/tabwriter"

	"memtool/config"
	"memtool/engine"
	"memtool/hexdump"
	"memtool/process"
	"memtool/process/memory_map"
	"memtool/search"
	"memtool/table"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/google/shlex"
	"github.com/spf13/pflag"
)

var argumentsErr = "invalid number of arguments, expected %s, actual %d"

type cmdFn func(s *Session, fs *pflag.FlagSet, args []string) error

// Command is one operation available both as a CLI subcommand and in the
// interactive shell.
type Command struct {
	Aliases     []string
	Usage       string
	Help        string
	MinArgs     int
	MaxArgs     int // -1 for no limit
	NeedsTarget bool
	ShellOnly   bool

	// Flags registers the command's flags. Values are read back from the
	// flag set the command runs with.
	Flags func(fs *pflag.FlagSet)

	fn cmdFn
}

// Name is the primary alias.
func (c Command) Name() string {
	return c.Aliases[0]
}

func (c Command) match(cmdstr string) bool {
	for _, v := range c.Aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

// Run checks the argument count and target requirement, then runs the
// command with flags already parsed into fs.
func (c Command) Run(s *Session, fs *pflag.FlagSet, args []string) error {
	if len(args) < c.MinArgs || (c.MaxArgs >= 0 && len(args) > c.MaxArgs) {
		return fmt.Errorf(argumentsErr, c.argRange(), len(args))
	}
	if c.NeedsTarget {
		if _, err := s.target(); err != nil {
			return err
		}
	}
	return c.fn(s, fs, args)
}

func (c Command) argRange() string {
	switch {
	case c.MaxArgs < 0:
		return fmt.Sprintf("at least %d", c.MinArgs)
	case c.MinArgs == c.MaxArgs:
		return strconv.Itoa(c.MinArgs)
	}
	return fmt.Sprintf("%d to %d", c.MinArgs, c.MaxArgs)
}

// NewFlagSet returns a flag set with the command's flags registered.
func (c Command) NewFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(c.Name(), pflag.ContinueOnError)
	fs.SetInterspersed(true)
	if c.Flags != nil {
		c.Flags(fs)
	}
	return fs
}

// ExitRequestError is returned by the exit command.
type ExitRequestError struct{}

func (ere ExitRequestError) Error() string {
	return ""
}

// Commands is the command table.
type Commands struct {
	cmds []Command
}

// NewCommands builds the command table.
func NewCommands() *Commands {
	c := &Commands{}

	c.cmds = []Command{
		{
			Aliases:   []string{"help", "h"},
			Usage:     "help [command]",
			Help:      "Prints the help message.",
			MaxArgs:   1,
			ShellOnly: true,
			fn:        c.help,
		},
		{
			Aliases: []string{"ps"},
			Usage:   "ps [filter]",
			Help:    "Lists running processes, optionally only those whose name contains filter.",
			MaxArgs: 1,
			fn:      ps,
		},
		{
			Aliases:     []string{"modules", "mods"},
			Usage:       "modules",
			Help:        "Lists the modules loaded in the target.",
			NeedsTarget: true,
			fn:          modules,
		},
		{
			Aliases:     []string{"module", "mod"},
			Usage:       "module <name>",
			Help:        "Prints base, end and size of one module.",
			MinArgs:     1,
			MaxArgs:     1,
			NeedsTarget: true,
			fn:          module,
		},
		{
			Aliases:     []string{"regions", "vmmap"},
			Usage:       "regions [addr]",
			Help:        "Lists the committed memory regions of the target, or the region containing addr.",
			MaxArgs:     1,
			NeedsTarget: true,
			fn:          regions,
		},
		{
			Aliases:     []string{"read", "r"},
			Usage:       "read <type> <addr>",
			Help:        "Reads a value. Types: u8 i8 u16 i16 u32 i32 u64 i64 f32 f64 ptr.",
			MinArgs:     2,
			MaxArgs:     2,
			NeedsTarget: true,
			fn:          read,
		},
		{
			Aliases:     []string{"write", "w"},
			Usage:       "write <type> <addr> <value>",
			Help:        "Writes a value, relaxing page protection when the page is not writable. On the command line put \"--\" before a negative value.",
			MinArgs:     3,
			MaxArgs:     3,
			NeedsTarget: true,
			fn:          write,
		},
		{
			Aliases:     []string{"ptr"},
			Usage:       "ptr <addr>",
			Help:        "Reads one pointer of the target's width.",
			MinArgs:     1,
			MaxArgs:     1,
			NeedsTarget: true,
			fn:          ptr,
		},
		{
			Aliases:     []string{"dump", "x"},
			Usage:       "dump <addr> <len>",
			Help:        "Prints a hex dump of len bytes.",
			MinArgs:     2,
			MaxArgs:     2,
			NeedsTarget: true,
			Flags: func(fs *pflag.FlagSet) {
				fs.IntP("width", "w", 0, "Bytes per line (config dump-width, default 16).")
				fs.IntP("group", "g", 1, "Bytes per group.")
				fs.BoolP("pointers", "p", false, "Annotate values that point into mapped memory.")
			},
			fn: dump,
		},
		{
			Aliases:     []string{"str", "string"},
			Usage:       "str <addr>",
			Help:        "Reads a NUL terminated UTF-8 string.",
			MinArgs:     1,
			MaxArgs:     1,
			NeedsTarget: true,
			Flags: func(fs *pflag.FlagSet) {
				fs.Int("max", 0, "Maximum bytes read (config max-string-len, default 256).")
			},
			fn: str,
		},
		{
			Aliases:     []string{"asm", "bytes"},
			Usage:       "asm <addr> <n>",
			Help:        "Prints n code bytes as hex pairs.",
			MinArgs:     2,
			MaxArgs:     2,
			NeedsTarget: true,
			fn:          asm,
		},
		{
			Aliases:     []string{"patch"},
			Usage:       "patch <addr> <hex...>",
			Help:        `Writes hex encoded bytes, e.g. "patch game.exe+0x1000 90 90 C3".`,
			MinArgs:     2,
			MaxArgs:     -1,
			NeedsTarget: true,
			fn:          patch,
		},
		{
			Aliases:     []string{"nop"},
			Usage:       "nop <addr> <n>",
			Help:        "Overwrites n bytes with 0x90.",
			MinArgs:     2,
			MaxArgs:     2,
			NeedsTarget: true,
			fn:          nop,
		},
		{
			Aliases:     []string{"chain"},
			Usage:       "chain [--load name | <base> [offset...]]",
			Help:        "Resolves a pointer chain. Every offset but the last is dereferenced.",
			MaxArgs:     -1,
			NeedsTarget: true,
			Flags: func(fs *pflag.FlagSet) {
				fs.StringP("load", "l", "", "Resolve a named chain from the config file.")
				fs.StringP("type", "t", "", "Read a value of this type at the result.")
				fs.Bool("trace", false, "Print every dereference.")
				fs.String("save", "", "Save the chain to the config file under this name.")
			},
			fn: chain,
		},
		{
			Aliases:     []string{"find"},
			Usage:       "find <base> <type> <value>",
			Help:        "Searches pointer paths from base that lead to value.",
			MinArgs:     3,
			MaxArgs:     3,
			NeedsTarget: true,
			Flags: func(fs *pflag.FlagSet) {
				fs.Int("depth", 3, "Maximum number of dereferences.")
				fs.Uint("size", 256, "Bytes scanned per structure.")
				fs.Uint("align", 4, "Offset alignment of the value.")
				fs.Int("max", 50, "Stop after this many results, 0 for no limit.")
			},
			fn: find,
		},
		{
			Aliases:     []string{"scan", "aob"},
			Usage:       "scan <pattern...>",
			Help:        `Scans readable memory for an array of bytes, "??" matches any byte, e.g. "scan 48 8B 05 ?? ?? ?? ??".`,
			MinArgs:     1,
			MaxArgs:     -1,
			NeedsTarget: true,
			Flags: func(fs *pflag.FlagSet) {
				fs.StringP("module", "m", "", "Only scan the image of this module.")
				fs.IntP("jobs", "j", runtime.NumCPU(), "Regions scanned in parallel.")
				fs.Int("max", 100, "Stop after this many matches, 0 for no limit.")
				fs.IntP("context", "c", 0, "Hex dump this many bytes around each match.")
			},
			fn: scan,
		},
		{
			Aliases:     []string{"ptrs"},
			Usage:       "ptrs <addr> <count>",
			Help:        "Reads an array of count pointers and prints the ones pointing into readable memory.",
			MinArgs:     2,
			MaxArgs:     2,
			NeedsTarget: true,
			fn:          ptrs,
		},
		{
			Aliases:     []string{"save"},
			Usage:       "save <addr> <len> <file>",
			Help:        "Writes len bytes of target memory to file.",
			MinArgs:     3,
			MaxArgs:     3,
			NeedsTarget: true,
			fn:          save,
		},
		{
			Aliases:     []string{"load"},
			Usage:       "load <file> <addr>",
			Help:        "Writes the contents of file into target memory at addr.",
			MinArgs:     2,
			MaxArgs:     2,
			NeedsTarget: true,
			fn:          load,
		},
		{
			Aliases:     []string{"snapshot"},
			Usage:       "snapshot <dir>",
			Help:        "Saves every readable region of the target to dir. Open it later with --dump dir.",
			MinArgs:     1,
			MaxArgs:     1,
			NeedsTarget: true,
			fn:          snapshot,
		},
		{
			Aliases:   []string{"exit", "quit", "q"},
			Usage:     "exit",
			Help:      "Exits the shell.",
			ShellOnly: true,
			fn:        exit,
		},
	}
	return c
}

// All returns the command table.
func (c *Commands) All() []Command {
	return c.cmds
}

// Find looks a command up by any of its aliases.
func (c *Commands) Find(cmdstr string) (Command, bool) {
	for _, v := range c.cmds {
		if v.match(cmdstr) {
			return v, true
		}
	}
	return Command{}, false
}

// Call splits line like a shell would, parses the command's flags and runs it.
func (c *Commands) Call(line string, s *Session) error {
	words, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse %q: %w", line, err)
	}
	if len(words) == 0 {
		return nil
	}

	cmd, ok := c.Find(words[0])
	if !ok {
		return fmt.Errorf("command not available: %s", words[0])
	}

	fs := cmd.NewFlagSet()
	if cmd.Flags == nil {
		// no flags to parse, so "-5" stays a value
		return cmd.Run(s, fs, words[1:])
	}
	fs.SetOutput(s.out)
	if err := fs.Parse(words[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	return cmd.Run(s, fs, fs.Args())
}

func (c *Commands) help(s *Session, fs *pflag.FlagSet, args []string) error {
	if len(args) == 1 {
		cmd, ok := c.Find(args[0])
		if !ok {
			return fmt.Errorf("command not available: %s", args[0])
		}
		s.printf("%s\n\n\t%s\n", cmd.Help, cmd.Usage)
		if usage := cmd.NewFlagSet().FlagUsages(); usage != "" {
			s.printf("\n%s", usage)
		}
		return nil
	}

	s.printf("The following commands are available:\n")
	w := new(tabwriter.Writer)
	w.Init(s.out, 0, 8, 0, '-', 0)
	for _, cmd := range c.cmds {
		if len(cmd.Aliases) > 1 {
			fmt.Fprintf(w, "    %s (alias: %s) \t %s\n", cmd.Aliases[0], strings.Join(cmd.Aliases[1:], " | "), cmd.Help)
		} else {
			fmt.Fprintf(w, "    %s \t %s\n", cmd.Aliases[0], cmd.Help)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	s.printf("\nType \"help\" followed by the name of a command for more information about it.\n")
	return nil
}

func exit(s *Session, fs *pflag.FlagSet, args []string) error {
	return ExitRequestError{}
}

func ps(s *Session, fs *pflag.FlagSet, args []string) error {
	procs, err := engine.ListProcesses(s.sys)
	if err != nil {
		return err
	}

	t := table.NewTable(
		table.ColumnSpec{Header: "PID", AlignRight: true},
		table.ColumnSpec{Header: "PPID", AlignRight: true},
		table.ColumnSpec{Header: "THREADS", AlignRight: true},
		table.ColumnSpec{Header: "NAME", FormatFunc: s.colored(coloransi.Green)},
	)
	for _, p := range procs {
		if len(args) == 1 && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(args[0])) {
			continue
		}
		t.AddRow(strconv.Itoa(int(p.PID)), strconv.Itoa(int(p.PPID)), strconv.Itoa(p.Threads), p.Name)
	}
	return t.Render(s.out)
}

func modules(s *Session, fs *pflag.FlagSet, args []string) error {
	mods, err := s.eng.Modules()
	if err != nil {
		return err
	}

	t := table.NewTable(
		table.ColumnSpec{Header: "NAME", FormatFunc: s.colored(coloransi.Green)},
		table.ColumnSpec{Header: "BASE", FormatFunc: s.colored(coloransi.Cyan)},
		table.ColumnSpec{Header: "END", FormatFunc: s.colored(coloransi.Cyan)},
		table.ColumnSpec{Header: "SIZE", AlignRight: true},
		table.ColumnSpec{Header: "PATH"},
	)
	for _, m := range mods {
		t.AddRow(m.Name, m.Base.String(), m.End.String(), fmt.Sprintf("0x%X", uint(m.Size)), m.Path)
	}
	return t.Render(s.out)
}

func module(s *Session, fs *pflag.FlagSet, args []string) error {
	m, err := s.eng.GetModule(args[0])
	if err != nil {
		return err
	}
	s.printf("%s base=%s end=%s size=0x%X\n", s.paint(coloransi.Green, m.Name), s.paint(coloransi.Cyan, m.Base.String()), s.paint(coloransi.Cyan, m.End.String()), uint(m.Size))
	return nil
}

func regions(s *Session, fs *pflag.FlagSet, args []string) error {
	var items []memory_map.MemoryMapItem
	if len(args) == 1 {
		addr, err := s.addr(args[0])
		if err != nil {
			return err
		}
		region, err := s.eng.QueryRegion(addr)
		if err != nil {
			return err
		}
		items = append(items, region)
	} else {
		var err error
		if items, err = s.eng.Regions(); err != nil {
			return err
		}
	}

	t := table.NewTable(
		table.ColumnSpec{Header: "START", FormatFunc: s.colored(coloransi.Cyan)},
		table.ColumnSpec{Header: "END", FormatFunc: s.colored(coloransi.Cyan)},
		table.ColumnSpec{Header: "SIZE", AlignRight: true},
		table.ColumnSpec{Header: "PERMS"},
		table.ColumnSpec{Header: "PROTECT"},
	)
	for _, r := range items {
		t.AddRow(fmt.Sprintf("0x%X", r.Address), fmt.Sprintf("0x%X", r.End()), fmt.Sprintf("0x%X", r.Size), r.Perms, r.Protect.String())
	}
	return t.Render(s.out)
}

func read(s *Session, fs *pflag.FlagSet, args []string) error {
	kind, err := lookupKind(args[0], s.eng.Architecture())
	if err != nil {
		return err
	}
	addr, err := s.addr(args[1])
	if err != nil {
		return err
	}
	v, err := kind.read(s.eng, addr)
	if err != nil {
		return err
	}
	s.printf("%s %s = %s\n", s.paint(coloransi.Cyan, addr.String()), kind.name, v)
	return nil
}

func write(s *Session, fs *pflag.FlagSet, args []string) error {
	kind, err := lookupKind(args[0], s.eng.Architecture())
	if err != nil {
		return err
	}
	addr, err := s.addr(args[1])
	if err != nil {
		return err
	}
	if err := kind.write(s.eng, addr, args[2]); err != nil {
		return err
	}
	s.printf("wrote %s %s to %s\n", kind.name, args[2], s.paint(coloransi.Cyan, addr.String()))
	return nil
}

func ptr(s *Session, fs *pflag.FlagSet, args []string) error {
	addr, err := s.addr(args[0])
	if err != nil {
		return err
	}
	v, err := s.eng.ReadPointer(addr)
	if err != nil {
		return err
	}
	s.printf("%s -> %s\n", s.paint(coloransi.Cyan, addr.String()), s.paint(coloransi.Yellow, v.String()))
	return nil
}

func dump(s *Session, fs *pflag.FlagSet, args []string) error {
	addr, err := s.addr(args[0])
	if err != nil {
		return err
	}
	n, err := parseCount(args[1])
	if err != nil {
		return err
	}
	data, err := s.eng.ReadBuffer(addr, n)
	if err != nil {
		return err
	}

	options := hexdump.DefaultOptions()
	options.StartAddress = uint64(addr)
	options.Color = s.color
	if s.conf.DumpWidth > 0 {
		options.BytesPerLine = s.conf.DumpWidth
	}
	if width, _ := fs.GetInt("width"); width > 0 {
		options.BytesPerLine = width
	}
	options.GroupSize, _ = fs.GetInt("group")
	if withPointers, _ := fs.GetBool("pointers"); withPointers {
		if options.MemoryMap, err = s.eng.Regions(); err != nil {
			return err
		}
		options.PointerSize = int(s.eng.Architecture().PointerSize())
	}

	hexdump.DumpToWriter(s.out, data, options)
	return nil
}

func str(s *Session, fs *pflag.FlagSet, args []string) error {
	addr, err := s.addr(args[0])
	if err != nil {
		return err
	}
	limit := s.conf.StringMax()
	if fs.Changed("max") {
		limit, _ = fs.GetInt("max")
	}
	if limit < 0 {
		return fmt.Errorf("negative --max %d", limit)
	}

	v, err := s.eng.ReadString(addr, process.ProcessMemorySize(limit))
	if err != nil {
		return err
	}
	s.printf("%s %q\n", s.paint(coloransi.Cyan, addr.String()), v)
	return nil
}

func asm(s *Session, fs *pflag.FlagSet, args []string) error {
	addr, err := s.addr(args[0])
	if err != nil {
		return err
	}
	n, err := parseCount(args[1])
	if err != nil {
		return err
	}
	hex, err := s.eng.ReadInstructions(addr, n)
	if err != nil {
		return err
	}
	s.printf("%s  %s\n", s.paint(coloransi.Cyan, addr.String()), hex)
	return nil
}

func patch(s *Session, fs *pflag.FlagSet, args []string) error {
	addr, err := s.addr(args[0])
	if err != nil {
		return err
	}
	hex := strings.Join(args[1:], " ")
	if err := s.eng.WriteInstructions(addr, hex); err != nil {
		return err
	}
	s.printf("patched %s\n", s.paint(coloransi.Cyan, addr.String()))
	return nil
}

func nop(s *Session, fs *pflag.FlagSet, args []string) error {
	addr, err := s.addr(args[0])
	if err != nil {
		return err
	}
	n, err := parseCount(args[1])
	if err != nil {
		return err
	}
	if err := s.eng.NopFill(addr, n); err != nil {
		return err
	}
	s.printf("wrote %d NOPs at %s\n", uint(n), s.paint(coloransi.Cyan, addr.String()))
	return nil
}

func chain(s *Session, fs *pflag.FlagSet, args []string) error {
	name, _ := fs.GetString("load")
	typ, _ := fs.GetString("type")
	trace, _ := fs.GetBool("trace")
	save, _ := fs.GetString("save")

	var def config.Chain
	if name != "" {
		if len(args) > 0 {
			return fmt.Errorf("--load takes no base or offsets")
		}
		var ok bool
		if def, ok = s.conf.Chains[name]; !ok {
			return fmt.Errorf("no chain named %q in the config file", name)
		}
		if typ == "" {
			typ = def.Type
		}
	} else {
		if len(args) == 0 {
			return fmt.Errorf(argumentsErr, "at least 1", 0)
		}
		def = config.Chain{Base: args[0], Offsets: args[1:], Type: typ}
	}

	base, err := s.addr(def.Base)
	if err != nil {
		return err
	}
	offsets, err := def.ParseOffsets()
	if err != nil {
		return err
	}

	var addr process.ProcessMemoryAddress
	if trace {
		var hops []process.ChainHop
		hops, addr, err = s.eng.TraceChain(base, offsets...)
		for _, hop := range hops {
			s.printf("  [%d] [%s + 0x%X] = %s\n", hop.Depth, hop.Base, hop.Offset, s.paint(coloransi.Yellow, hop.Value.String()))
		}
	} else {
		addr, err = s.eng.ResolvePointerChain(base, offsets...)
	}
	if err != nil {
		return err
	}

	if typ == "" {
		s.printf("%s\n", s.paint(coloransi.Cyan, addr.String()))
	} else {
		kind, err := lookupKind(typ, s.eng.Architecture())
		if err != nil {
			return err
		}
		v, err := kind.read(s.eng, addr)
		if err != nil {
			return err
		}
		s.printf("%s %s = %s\n", s.paint(coloransi.Cyan, addr.String()), kind.name, v)
	}

	if save != "" {
		if s.conf.Chains == nil {
			s.conf.Chains = map[string]config.Chain{}
		}
		s.conf.Chains[save] = def
		if err := config.SaveConfig(s.confFile, s.conf); err != nil {
			return fmt.Errorf("save chain %q: %w", save, err)
		}
		s.printf("saved chain %q\n", save)
	}
	return nil
}

func find(s *Session, fs *pflag.FlagSet, args []string) error {
	base, err := s.addr(args[0])
	if err != nil {
		return err
	}
	kind, err := lookupKind(args[1], s.eng.Architecture())
	if err != nil {
		return err
	}
	pattern, err := kind.parse(args[2])
	if err != nil {
		return err
	}

	depth, _ := fs.GetInt("depth")
	size, _ := fs.GetUint("size")
	align, _ := fs.GetUint("align")
	limit, _ := fs.GetInt("max")

	results, err := s.eng.FindPointerPaths(base,
		search.WithSearchForBytes(pattern),
		search.WithMaxDepth(depth),
		search.WithMaxStructSize(size),
		search.WithMinAlignment(align),
		search.WithMaxResults(limit),
	)
	if err != nil {
		return err
	}

	for _, r := range results {
		s.printf("%s %s\n", args[0], r)
	}
	s.printf("%d paths\n", len(results))
	return nil
}

func scan(s *Session, fs *pflag.FlagSet, args []string) error {
	aob, err := search.ParseAOB(strings.Join(args, " "))
	if err != nil {
		return err
	}
	moduleName, _ := fs.GetString("module")
	jobs, _ := fs.GetInt("jobs")
	limit, _ := fs.GetInt("max")
	context, _ := fs.GetInt("context")
	if context < 0 {
		return fmt.Errorf("negative --context %d", context)
	}

	options := []search.ScanOption{search.WithJobs(jobs), search.WithLimit(limit)}
	var results []process.ProcessMemoryAddress
	if moduleName != "" {
		results, err = s.eng.ScanModule(moduleName, aob, options...)
	} else {
		results, err = s.eng.Scan(aob, options...)
	}
	if err != nil {
		return err
	}

	for _, addr := range results {
		s.printf("%s\n", s.paint(coloransi.Cyan, addr.String()))
		if context == 0 {
			continue
		}

		start := addr
		if uint64(addr) >= uint64(context) {
			start = addr - process.ProcessMemoryAddress(context)
		}
		size := process.ProcessMemorySize(uint64(addr-start) + uint64(len(aob.Pattern)) + uint64(context))
		data, err := s.eng.ReadBuffer(start, size)
		if err != nil {
			// the window can run off the region
			data, err = s.eng.ReadBuffer(addr, process.ProcessMemorySize(len(aob.Pattern)))
			if err != nil {
				continue
			}
			start = addr
		}

		options := hexdump.DefaultOptions()
		options.StartAddress = uint64(start)
		options.Color = s.color
		off := int(addr - start)
		options.HighlightPattern = data[off : off+len(aob.Pattern)]
		hexdump.DumpToWriter(s.out, data, options)
	}
	s.printf("%d matches for %s\n", len(results), aob)
	return nil
}

func ptrs(s *Session, fs *pflag.FlagSet, args []string) error {
	addr, err := s.addr(args[0])
	if err != nil {
		return err
	}
	n, err := parseCount(args[1])
	if err != nil {
		return err
	}
	list, err := s.eng.ReadPointerList(addr, int(n))
	if err != nil {
		return err
	}
	for i, p := range list {
		s.printf("[%d] %s\n", i, s.paint(coloransi.Yellow, p.String()))
	}
	s.printf("%d of %d pointers valid\n", len(list), uint(n))
	return nil
}

func save(s *Session, fs *pflag.FlagSet, args []string) error {
	addr, err := s.addr(args[0])
	if err != nil {
		return err
	}
	n, err := parseCount(args[1])
	if err != nil {
		return err
	}
	data, err := s.eng.ReadBuffer(addr, n)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[2], data, 0644); err != nil {
		return err
	}
	s.printf("saved %d bytes at %s to %s\n", len(data), s.paint(coloransi.Cyan, addr.String()), args[2])
	return nil
}

func load(s *Session, fs *pflag.FlagSet, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	addr, err := s.addr(args[1])
	if err != nil {
		return err
	}
	if err := s.eng.WriteBuffer(addr, data); err != nil {
		return err
	}
	s.printf("loaded %d bytes from %s to %s\n", len(data), args[0], s.paint(coloransi.Cyan, addr.String()))
	return nil
}

func snapshot(s *Session, fs *pflag.FlagSet, args []string) error {
	stats, err := s.eng.SaveDump(args[0])
	if err != nil {
		return err
	}
	s.printf("saved %d regions (%d bytes) to %s\n", stats.Saved, stats.Bytes, args[0])
	if skipped := stats.SkippedNonReadable + stats.SkippedTooLarge + stats.ReadErrors; skipped > 0 {
		s.printf("skipped %d regions\n", skipped)
	}
	return nil
}

// colored is table.Colored when the session is coloured.
func (s *Session) colored(fg coloransi.ColorCode) table.FormatFunc {
	if !s.color {
		return nil
	}
	return table.Colored(fg)
}

func parseCount(s string) (process.ProcessMemorySize, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return process.ProcessMemorySize(n), nil
}
