// Package manifest handles stacc.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "stacc.toml"

// Manifest represents a stacc.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Repl    ReplConfig   `toml:"repl"`
	Image   ImageConfig  `toml:"image"`
	Server  ServerConfig `toml:"server"`
	Log     LogConfig    `toml:"log"`

	// Dir is the directory containing the stacc.toml file (set at load time).
	// It is empty for a default manifest.
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

// ReplConfig configures the interactive loop.
type ReplConfig struct {
	Prompt       string `toml:"prompt"`
	Continuation string `toml:"continuation"`
	HistoryFile  string `toml:"history-file"`
	HistoryDB    string `toml:"history-db"`
	ShowState    bool   `toml:"show-state"`
}

// ImageConfig configures the saved interpreter image.
type ImageConfig struct {
	Path string `toml:"path"`
}

// ServerConfig configures the evaluation server.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no stacc.toml is present.
func Default() *Manifest {
	return &Manifest{
		Repl: ReplConfig{
			Prompt:       "> ",
			Continuation: ".. ",
			HistoryFile:  ".stacc_history",
			ShowState:    true,
		},
		Server: ServerConfig{Addr: ":4567"},
	}
}

// Load parses a stacc.toml file from the given directory. Keys missing from
// the file keep their Default values.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a stacc.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks values that would otherwise fail later at startup.
func (m *Manifest) Validate() error {
	if m.Log.Verbosity < 0 {
		return errors.New("log verbosity must not be negative")
	}
	if m.Repl.Prompt == "" {
		return errors.New("repl prompt must not be empty")
	}
	if m.Server.Addr == "" {
		return errors.New("server addr must not be empty")
	}
	return nil
}

// resolve makes a relative path relative to the manifest directory.
func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// EntryPath returns the absolute path of the project entry script, or ""
// when none is configured.
func (m *Manifest) EntryPath() string {
	return m.resolve(m.Project.Entry)
}

// ImagePath returns the image path resolved against the manifest directory.
func (m *Manifest) ImagePath() string {
	return m.resolve(m.Image.Path)
}

// HistoryDBPath returns the transcript database path resolved against the
// manifest directory, or "" when the transcript is disabled.
func (m *Manifest) HistoryDBPath() string {
	return m.resolve(m.Repl.HistoryDB)
}

// LogFilePath returns the log file path resolved against the manifest
// directory, or "" to log to stderr.
func (m *Manifest) LogFilePath() string {
	return m.resolve(m.Log.File)
}

// HistoryFilePath returns the line-history file. Relative paths are taken
// relative to the user's home directory.
func (m *Manifest) HistoryFilePath() string {
	p := m.Repl.HistoryFile
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p)
}
