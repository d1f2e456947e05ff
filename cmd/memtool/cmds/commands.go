// Package cmds builds the memtool command tree. Every memory command comes
// from the terminal command table, so "memtool read u32 game.exe+0x10" and
// "read u32 game.exe+0x10" inside "memtool shell" run the same code.
package cmds

import (
	"fmt"

	"memtool/config"
	"memtool/engine"
	"memtool/process"
	"memtool/process_blob"
	"memtool/terminal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const version string = "0.3.0"

var (
	// pid is the process ID to open.
	pid int
	// name is the executable name of the process to open.
	name string
	// arch is the target architecture, auto-detected by default.
	arch = archValue(process.ArchitectureAuto)
	// debug enables per-operation trace logging.
	debug bool
	// configFile overrides ~/.memtool/config.yml.
	configFile string
	// color is auto, always or never; empty means the config file decides.
	color string
	// dumpDir opens a snapshot saved with "snapshot" instead of a live process.
	dumpDir string

	rootCommand *cobra.Command
)

const memtoolCommandLongDesc = `memtool reads and writes the memory of another running process.

Addresses are expressions: a number (0x hex or decimal) or a module name,
joined with + and -, e.g. "game.exe+0x1F40" or "0x7FF6A0001000-8".

Pass --name or --pid to select the target process. Without either, the
"target" entry of the config file (~/.memtool/config.yml) is used.
With --dump, a directory written by "snapshot" is opened as an offline
target instead.
`

// New returns an initialized command tree.
func New() *cobra.Command {
	rootCommand = &cobra.Command{
		Use:          "memtool",
		Short:        "memtool inspects and patches the memory of a running process.",
		Long:         memtoolCommandLongDesc,
		SilenceUsage: true,
	}

	rootCommand.PersistentFlags().IntVar(&pid, "pid", 0, "ID of the process to open.")
	rootCommand.PersistentFlags().StringVarP(&name, "name", "n", "", "Executable name of the process to open, e.g. game.exe.")
	rootCommand.PersistentFlags().Var(&arch, "arch", "Target architecture: auto, x86 or x64.")
	rootCommand.PersistentFlags().BoolVar(&debug, "debug", false, "Log every memory operation.")
	rootCommand.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.memtool/config.yml).")
	rootCommand.PersistentFlags().StringVar(&color, "color", "", "Colored output: auto, always or never.")
	rootCommand.PersistentFlags().StringVar(&dumpDir, "dump", "", "Open a snapshot directory instead of a live process.")

	table := terminal.NewCommands()
	for _, c := range table.All() {
		if c.ShellOnly {
			continue
		}
		rootCommand.AddCommand(newSubcommand(c))
	}

	shellCommand := &cobra.Command{
		Use:   "shell",
		Short: "Starts an interactive shell on the target.",
		Long: `Starts an interactive shell. The target is opened once and every
memory command is available without the "memtool" prefix. Without --name,
--pid or a configured target only "ps" works.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(targetOptional, func(s *terminal.Session) error {
				return terminal.New(s, table).Run()
			})
		},
	}
	rootCommand.AddCommand(shellCommand)

	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("memtool version: " + version)
		},
	}
	rootCommand.AddCommand(versionCommand)

	return rootCommand
}

func newSubcommand(c terminal.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:     c.Usage,
		Aliases: c.Aliases[1:],
		Short:   c.Help,
		RunE: func(cmd *cobra.Command, args []string) error {
			want := targetNone
			if c.NeedsTarget {
				want = targetRequired
			}
			return withSession(want, func(s *terminal.Session) error {
				return c.Run(s, cmd.Flags(), args)
			})
		},
	}
	if c.MaxArgs < 0 {
		cmd.Args = cobra.MinimumNArgs(c.MinArgs)
	} else {
		cmd.Args = cobra.RangeArgs(c.MinArgs, c.MaxArgs)
	}
	if c.Flags != nil {
		c.Flags(cmd.Flags())
	}
	return cmd
}

type targetMode int

const (
	targetNone targetMode = iota
	targetOptional
	targetRequired
)

// withSession loads the config, opens the target as want asks and runs fn.
func withSession(want targetMode, fn func(s *terminal.Session) error) error {
	conf, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	colorMode := conf.ColorMode()
	if color != "" {
		colorMode = color
	}
	switch colorMode {
	case config.ColorAuto, config.ColorAlways, config.ColorNever:
	default:
		return fmt.Errorf("--color must be auto, always or never, not %q", colorMode)
	}
	out, colored := terminal.Stdout(colorMode)

	sys, target, err := openSystem(conf)
	if err != nil {
		return err
	}
	if want == targetNone || (target.Name == "" && target.PID == 0) {
		if want == targetRequired {
			return fmt.Errorf("no target process, use --name or --pid")
		}
		return fn(terminal.NewSession(sys, nil, conf, configFile, out, colored))
	}

	targetArch := conf.Architecture()
	if rootCommand.PersistentFlags().Changed("arch") {
		targetArch = process.Architecture(arch)
	}

	eng, err := engine.Open(sys, target,
		engine.WithArchitecture(targetArch),
		engine.WithDebug(debug || conf.Debug),
	)
	if err != nil {
		return err
	}
	defer eng.Close()

	return fn(terminal.NewSession(sys, eng, conf, configFile, out, colored))
}

// openSystem returns the live backend, or a single offline process when
// --dump names a snapshot. The snapshot is the target unless --name or
// --pid says otherwise.
func openSystem(conf *config.Config) (process.System, process.Target, error) {
	if dumpDir == "" {
		sys, err := engine.DefaultSystem()
		if err != nil {
			return nil, process.Target{}, err
		}
		return sys, selectTarget(conf), nil
	}

	blob, err := process_blob.LoadDump(dumpDir)
	if err != nil {
		return nil, process.Target{}, err
	}
	target := process.Target{PID: blob.GetPID()}
	if name != "" || pid > 0 {
		target = selectTarget(conf)
	}
	return process_blob.NewSystem(blob), target, nil
}

// selectTarget prefers --name, then --pid, then the config file.
func selectTarget(conf *config.Config) process.Target {
	switch {
	case name != "":
		return process.Target{Name: name}
	case pid > 0:
		return process.Target{PID: process.ProcessID(pid)}
	case conf.Target != "":
		return process.ParseTarget(conf.Target)
	}
	return process.Target{}
}

// archValue is a pflag.Value over process.Architecture.
type archValue process.Architecture

var _ pflag.Value = (*archValue)(nil)

func (a *archValue) String() string {
	return process.Architecture(*a).String()
}

func (a *archValue) Set(s string) error {
	v, err := process.ParseArchitecture(s)
	if err != nil {
		return err
	}
	*a = archValue(v)
	return nil
}

func (a *archValue) Type() string {
	return "arch"
}
