// Package storage provides a small filesystem abstraction so that components
// writing key material and CRLs can be tested against an in-memory fake.
package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotExist indicates the requested path does not exist.
var ErrNotExist = fs.ErrNotExist

// FileSystem is the file access contract consumed by the signing-key store
// and the CRL publisher.
type FileSystem interface {
	// ReadFile returns the contents of the file at path.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to path with the given permissions,
	// replacing any existing file.
	WriteFile(path string, data []byte, perm fs.FileMode) error

	// Exists reports whether a file or directory exists at path.
	Exists(path string) bool

	// MkdirAll creates the directory at path along with any missing parents.
	MkdirAll(path string, perm fs.FileMode) error
}

// OS implements FileSystem over the real filesystem.
type OS struct{}

var _ FileSystem = OS{}

func (OS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (OS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (OS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OS) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Mem is an in-memory FileSystem fake for tests.
// Directories are tracked only as far as Exists/MkdirAll need them.
type Mem struct {
	files map[string][]byte
	dirs  map[string]struct{}

	// FailWrites, when set, makes every WriteFile call fail. Used to
	// exercise publish-failure paths.
	FailWrites bool
}

var _ FileSystem = (*Mem)(nil)

// NewMem returns an empty in-memory filesystem.
func NewMem() *Mem {
	return &Mem{
		files: make(map[string][]byte),
		dirs:  make(map[string]struct{}),
	}
}

func (m *Mem) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Mem) WriteFile(path string, data []byte, perm fs.FileMode) error {
	if m.FailWrites {
		return &fs.PathError{Op: "write", Path: path, Err: errors.New("write rejected")}
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.files[filepath.Clean(path)] = stored
	return nil
}

func (m *Mem) Exists(path string) bool {
	clean := filepath.Clean(path)
	if _, ok := m.files[clean]; ok {
		return true
	}
	_, ok := m.dirs[clean]
	return ok
}

func (m *Mem) MkdirAll(path string, perm fs.FileMode) error {
	clean := filepath.Clean(path)
	for clean != "." && clean != string(filepath.Separator) {
		m.dirs[clean] = struct{}{}
		clean = filepath.Dir(clean)
	}
	return nil
}
