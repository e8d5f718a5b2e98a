// Package fsys provides the directory-listing and stat primitives the scan
// engine reads the filesystem through. Implementations exist for the local
// filesystem (via afero, so tests can run against an in-memory fs) and for
// remote SFTP servers.
package fsys

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Sentinel error kinds for filesystem primitives. Implementations wrap the
// underlying error with exactly one of these.
var (
	ErrNotFound   = errors.New("not found")
	ErrPermission = errors.New("permission denied")
	ErrIO         = errors.New("i/o error")
)

// Entry is the metadata of one directory entry.
type Entry struct {
	Name  string
	Size  int64
	Mtime time.Time
	Dev   uint64 // 0 when the backend cannot report device ids
	Nlink uint64
	IsDir bool
	// Err is set when the entry was listed but its metadata could not be
	// read (e.g. stat permission failure). Name is still valid.
	Err error
}

// Lister lists directory entries and stats paths.
type Lister interface {
	// ReadDir returns the immediate entries of the directory at path.
	// Per-entry stat failures are reported inside the returned slice via
	// Entry.Err; an error return means the directory itself was unreadable.
	ReadDir(path string) ([]Entry, error)

	// Stat returns the metadata of the object at path.
	Stat(path string) (Entry, error)

	// Join joins path elements using the backend's separator convention.
	Join(elem ...string) string
}

// MapError classifies err into one of the sentinel kinds, preserving the
// original as the wrapped cause.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission) || errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %w", ErrPermission, err)
	default:
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
}
