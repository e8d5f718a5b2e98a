package fsys

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// Local lists the filesystem behind an afero.Fs. Production code uses the
// real OS filesystem; tests can substitute afero.NewMemMapFs.
type Local struct {
	fs afero.Fs
}

// NewLocal returns a Lister over the OS filesystem.
func NewLocal() *Local {
	return &Local{fs: afero.NewOsFs()}
}

// NewLocalFs returns a Lister over an arbitrary afero filesystem.
func NewLocalFs(fs afero.Fs) *Local {
	return &Local{fs: fs}
}

func (l *Local) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// Stat stats a single path. Symlinks are not followed when the backend
// supports lstat, so a symlink shows up as itself rather than its target.
func (l *Local) Stat(path string) (Entry, error) {
	info, err := l.lstat(path)
	if err != nil {
		return Entry{}, MapError(err)
	}
	return l.entryFromInfo(info), nil
}

// ReadDir lists the immediate entries of a directory. Entries whose
// metadata cannot be read are returned with Entry.Err set rather than
// dropped; only a failure to list the directory itself is an error.
func (l *Local) ReadDir(path string) ([]Entry, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, MapError(err)
	}
	names, err := f.Readdirnames(-1)
	closeErr := f.Close()
	if err != nil {
		return nil, MapError(err)
	}
	if closeErr != nil {
		return nil, MapError(closeErr)
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		info, err := l.lstat(filepath.Join(path, name))
		if err != nil {
			entries = append(entries, Entry{Name: name, Err: MapError(err)})
			continue
		}
		e := l.entryFromInfo(info)
		e.Name = name // Readdirnames is authoritative for the name
		entries = append(entries, e)
	}
	return entries, nil
}

func (l *Local) lstat(path string) (os.FileInfo, error) {
	if lst, ok := l.fs.(afero.Lstater); ok {
		info, _, err := lst.LstatIfPossible(path)
		return info, err
	}
	return l.fs.Stat(path)
}

func (l *Local) entryFromInfo(info os.FileInfo) Entry {
	st := getStatInfo(info)
	return Entry{
		Name:  info.Name(),
		Size:  info.Size(),
		Mtime: info.ModTime(),
		Dev:   st.dev,
		Nlink: st.nlink,
		IsDir: info.IsDir(),
	}
}
