// Package config loads the memtool configuration file, ~/.memtool/config.yml.
// A commented default file is written the first time it is looked for.
package config

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path"
	"sort"
	"strings"

	"memtool/process"

	"gopkg.in/yaml.v2"
)

const (
	configDir   string = ".memtool"
	configFile  string = "config.yml"
	historyFile string = ".memtool_history"
)

const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Chain is a named pointer chain. Base is an address expression such as
// "game.exe+0x10"; Offsets are parsed with process.ParseOffset.
type Chain struct {
	Base    string   `yaml:"base"`
	Offsets []string `yaml:"offsets,flow"`
	// Type, when set, is the value type read at the resolved address.
	Type string `yaml:"type,omitempty"`
}

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// Target is the process name or PID used when neither --name nor --pid is given.
	Target string `yaml:"target,omitempty"`
	// Arch is auto, x86 or x64.
	Arch string `yaml:"arch,omitempty"`
	// Debug turns on per-operation trace logging.
	Debug bool `yaml:"debug,omitempty"`

	// MaxStringLen is the read bound of the str command.
	MaxStringLen *int `yaml:"max-string-len,omitempty"`
	// DumpWidth is the number of bytes per hex dump line.
	DumpWidth int `yaml:"dump-width,omitempty"`
	// Color is auto, always or never.
	Color string `yaml:"color,omitempty"`
	// HistorySize caps the number of shell history lines kept on disk.
	HistorySize int `yaml:"history-size,omitempty"`

	Chains map[string]Chain `yaml:"chains,omitempty"`
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unable to decode config file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values that have a closed set of spellings.
func (c *Config) Validate() error {
	if _, err := process.ParseArchitecture(c.Arch); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(c.Color) {
	case "", ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("config: color must be auto, always or never, not %q", c.Color)
	}
	if c.MaxStringLen != nil && *c.MaxStringLen < 0 {
		return fmt.Errorf("config: negative max-string-len %d", *c.MaxStringLen)
	}
	if c.DumpWidth < 0 {
		return fmt.Errorf("config: negative dump-width %d", c.DumpWidth)
	}
	for name, ch := range c.Chains {
		if ch.Base == "" {
			return fmt.Errorf("config: chain %q has no base", name)
		}
		if _, err := ch.ParseOffsets(); err != nil {
			return fmt.Errorf("config: chain %q: %w", name, err)
		}
	}
	return nil
}

// Architecture returns the configured architecture, auto when unset.
func (c *Config) Architecture() process.Architecture {
	arch, _ := process.ParseArchitecture(c.Arch)
	return arch
}

// StringMax returns the configured str bound, zero meaning the engine default.
func (c *Config) StringMax() int {
	if c.MaxStringLen == nil {
		return 0
	}
	return *c.MaxStringLen
}

// ColorMode returns the normalized color setting.
func (c *Config) ColorMode() string {
	if c.Color == "" {
		return ColorAuto
	}
	return strings.ToLower(c.Color)
}

// ChainNames returns the configured chain names in order.
func (c *Config) ChainNames() []string {
	names := make([]string, 0, len(c.Chains))
	for name := range c.Chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseOffsets parses the chain's offsets.
func (ch Chain) ParseOffsets() ([]uint32, error) {
	offsets := make([]uint32, 0, len(ch.Offsets))
	for _, s := range ch.Offsets {
		off, err := process.ParseOffset(s)
		if err != nil {
			return nil, err
		}
		offsets = append(offsets, off)
	}
	return offsets, nil
}

// LoadConfig reads the config file at file. An empty file name means the
// default location, which is created with commented defaults when missing.
func LoadConfig(file string) (*Config, error) {
	if file == "" {
		if err := createConfigPath(); err != nil {
			return nil, fmt.Errorf("could not create config directory: %w", err)
		}
		fullConfigFile, err := GetConfigFilePath(configFile)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(fullConfigFile); os.IsNotExist(err) {
			if err := createDefaultConfig(fullConfigFile); err != nil {
				return nil, err
			}
		}
		file = fullConfigFile
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("unable to read config data: %w", err)
	}
	return Parse(data)
}

// SaveConfig marshals conf to file, or to the default location when file
// is empty. Comments of the existing file are not preserved.
func SaveConfig(file string, conf *Config) error {
	if file == "" {
		var err error
		if file, err = GetConfigFilePath(configFile); err != nil {
			return err
		}
	}

	out, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}
	return os.WriteFile(file, out, 0600)
}

func createDefaultConfig(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create config file: %w", err)
	}
	defer f.Close()

	if err := writeDefaultConfig(f); err != nil {
		return fmt.Errorf("unable to write default configuration: %w", err)
	}
	return nil
}

func writeDefaultConfig(w io.Writer) error {
	_, err := io.WriteString(w,
		`# Configuration file for memtool.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Process name or PID to open when neither --name nor --pid is given.
# target: game.exe

# Pointer width of the target: auto, x86 or x64.
# arch: auto

# Log every memory operation.
# debug: false

# Maximum number of bytes read by the str command (default 256).
# max-string-len: 256

# Bytes per hex dump line.
# dump-width: 16

# ANSI colors: auto, always or never.
# color: auto

# Number of shell history lines kept.
# history-size: 1000

# Named pointer chains, usable as "chain --load <name>".
chains:
  # health: {base: "game.exe+0x10", offsets: [0x20, 0x8], type: f32}
`)
	return err
}

// createConfigPath creates the directory structure at which all config files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	userHomeDir := "."
	usr, err := user.Current()
	if err == nil {
		userHomeDir = usr.HomeDir
	}
	return path.Join(userHomeDir, configDir, file), nil
}

// HistoryFilePath is where the shell keeps its history.
func HistoryFilePath() (string, error) {
	return GetConfigFilePath(historyFile)
}
