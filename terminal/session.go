package terminal

import (
	"fmt"
	"io"
	"os"

	"memtool/config"
	"memtool/engine"
	"memtool/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Session is what commands run against: an optional open Engine, the
// process locator, the configuration and the output stream.
type Session struct {
	sys      process.System
	eng      *engine.Engine
	conf     *config.Config
	confFile string
	out      io.Writer
	color    bool
}

// NewSession builds a session. eng may be nil for commands that do not
// need a target.
func NewSession(sys process.System, eng *engine.Engine, conf *config.Config, confFile string, out io.Writer, color bool) *Session {
	if conf == nil {
		conf = &config.Config{}
	}
	return &Session{
		sys:      sys,
		eng:      eng,
		conf:     conf,
		confFile: confFile,
		out:      out,
		color:    color,
	}
}

// Stdout returns the terminal output stream and whether it should be
// coloured for the given mode (auto, always or never).
func Stdout(mode string) (io.Writer, bool) {
	switch mode {
	case config.ColorAlways:
		return colorable.NewColorableStdout(), true
	case config.ColorNever:
		return os.Stdout, false
	}
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return colorable.NewColorableStdout(), true
	}
	return colorable.NewNonColorable(os.Stdout), false
}

// Engine returns the open target, or nil.
func (s *Session) Engine() *engine.Engine {
	return s.eng
}

func (s *Session) target() (*engine.Engine, error) {
	if s.eng == nil {
		return nil, fmt.Errorf("%w: no target, use --name or --pid", process.ErrProcessNotOpen)
	}
	return s.eng, nil
}

// addr evaluates an address expression against the open target.
func (s *Session) addr(expr string) (process.ProcessMemoryAddress, error) {
	if s.eng == nil {
		return ParseAddressExpr(expr, nil)
	}
	return ParseAddressExpr(expr, s.eng)
}

func (s *Session) paint(fg coloransi.ColorCode, text string) string {
	if !s.color {
		return text
	}
	return coloransi.Foreground(fg, text)
}

func (s *Session) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}
