// Package terminal implements memtool's commands and its interactive shell.
// The same command table backs the CLI subcommands and the shell, so every
// operation behaves identically in both.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"memtool/config"

	"github.com/derekparker/trie"
	"github.com/go-delve/liner"
)

const (
	prompt             = "(mem) "
	defaultHistorySize = 1000
)

// Term is the interactive shell.
type Term struct {
	session     *Session
	cmds        *Commands
	line        *liner.State
	prompt      string
	historyFile string
	historySize int
}

// New creates a shell over an open session.
func New(session *Session, cmds *Commands) *Term {
	historySize := session.conf.HistorySize
	if historySize <= 0 {
		historySize = defaultHistorySize
	}

	t := &Term{
		session:     session,
		cmds:        cmds,
		prompt:      prompt,
		historySize: historySize,
	}
	if session.eng != nil {
		t.prompt = fmt.Sprintf("(mem %s:%d) ", session.eng.ProcessName(), session.eng.PID())
	}
	return t
}

// Run reads and executes commands until exit or EOF.
func (t *Term) Run() error {
	t.line = liner.NewLiner()
	defer t.line.Close()
	t.line.SetCtrlCAborts(true)
	t.line.SetCompleter(t.completer())

	if file, err := config.HistoryFilePath(); err == nil {
		t.historyFile = file
		if err := t.readHistory(); err != nil {
			fmt.Fprintf(os.Stderr, "Unable to read history file %s: %v\n", file, err)
		}
	}

	fmt.Fprintln(t.session.out, "Type 'help' for list of commands.")

	for {
		cmdstr, err := t.promptForInput()
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(t.session.out, "exit")
				return t.handleExit()
			}
			return fmt.Errorf("prompt for input failed: %w", err)
		}

		if strings.TrimSpace(cmdstr) == "" {
			continue
		}

		if err := t.cmds.Call(cmdstr, t.session); err != nil {
			var exitErr ExitRequestError
			if errors.As(err, &exitErr) {
				return t.handleExit()
			}
			fmt.Fprintf(os.Stderr, "Command failed: %s\n", err)
		}
	}
}

// completer completes command names and, after a command, configured
// chain names.
func (t *Term) completer() liner.Completer {
	cmds := trie.New()
	for _, cmd := range t.cmds.All() {
		for _, alias := range cmd.Aliases {
			cmds.Add(alias, nil)
		}
	}
	chains := trie.New()
	for _, name := range t.session.conf.ChainNames() {
		chains.Add(name, nil)
	}

	return func(line string) (c []string) {
		if i := strings.LastIndex(line, " "); i >= 0 {
			if !strings.HasPrefix(line, "chain ") {
				return nil
			}
			for _, name := range chains.PrefixSearch(line[i+1:]) {
				c = append(c, line[:i+1]+name)
			}
			return c
		}
		return cmds.PrefixSearch(line)
	}
}

func (t *Term) promptForInput() (string, error) {
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}

	l = strings.TrimSuffix(l, "\n")
	if l != "" {
		t.line.AppendHistory(l)
	}
	return l, nil
}

// readHistory loads at most historySize lines of the history file.
func (t *Term) readHistory() error {
	f, err := os.Open(t.historyFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(lines) > t.historySize {
		lines = lines[len(lines)-t.historySize:]
	}

	_, err = t.line.ReadHistory(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	return err
}

func (t *Term) handleExit() error {
	if t.historyFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.historyFile), 0700); err != nil {
		fmt.Println("Error saving history file:", err)
		return nil
	}
	f, err := os.Create(t.historyFile)
	if err != nil {
		fmt.Println("Error saving history file:", err)
		return nil
	}
	defer f.Close()
	if _, err := t.line.WriteHistory(f); err != nil {
		fmt.Println("readline history error:", err)
	}
	return nil
}
