// Package home manages the logcore home directory layout: the small bit of
// local state a running instance keeps between restarts (its own identity,
// and per-source bookmark files for adapters like internal/source/file that
// need to remember their position).
//
// Layout:
//
//	<root>/
//	  node_id        (persistent run identity, one line)
//	  state/
//	    <kind>/
//	      <source-id>.json   (adapter-specific bookmark state)
package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Dir represents a logcore home directory.
type Dir struct {
	root string
}

// New creates a Dir with an explicit root path.
func New(root string) Dir {
	return Dir{root: root}
}

// Default returns a Dir using the platform-appropriate default location:
//   - Linux:   ~/.config/logcore
//   - macOS:   ~/Library/Application Support/logcore
//   - Windows: %APPDATA%/logcore
func Default() (Dir, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return Dir{}, fmt.Errorf("determine config directory: %w", err)
	}
	return Dir{root: filepath.Join(base, "logcore")}, nil
}

// Root returns the home directory path.
func (d Dir) Root() string {
	return d.root
}

// StateDir returns the directory an adapter of the given kind (e.g. "file")
// should use to persist per-source bookmark state.
func (d Dir) StateDir(kind string) string {
	return filepath.Join(d.root, "state", kind)
}

// EnsureExists creates the home directory (and parents) if it doesn't exist.
func (d Dir) EnsureExists() error {
	if err := os.MkdirAll(d.root, 0o750); err != nil {
		return fmt.Errorf("create home directory %s: %w", d.root, err)
	}
	return nil
}

// NodeID reads the persistent node identity from <root>/node_id.
// If the file doesn't exist, a new UUIDv7 is generated and written.
func (d Dir) NodeID() (string, error) {
	return d.readOrCreate("node_id", func() string {
		return uuid.Must(uuid.NewV7()).String()
	})
}

// readOrCreate reads a single-line value from <root>/<filename>.
// If the file doesn't exist, generate() provides the default which is persisted.
func (d Dir) readOrCreate(filename string, generate func() string) (string, error) {
	p := filepath.Join(d.root, filename)
	data, err := os.ReadFile(p) //nolint:gosec // G304: path is constructed from trusted home dir + constant filename
	if err == nil {
		if v := strings.TrimSpace(string(data)); v != "" {
			return v, nil
		}
	}
	v := generate()
	if err := os.WriteFile(p, []byte(v+"\n"), 0o640); err != nil { //nolint:gosec // G306: node-id file is not secret, 0640 is intentional
		return "", fmt.Errorf("write %s: %w", filename, err)
	}
	return v, nil
}
