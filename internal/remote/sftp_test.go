package remote

import (
	"errors"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/sadopc/dirtree/internal/fsys"
)

type fakeInfo struct {
	name  string
	size  int64
	mode  os.FileMode
	mtime time.Time
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return f.size }
func (f fakeInfo) Mode() os.FileMode  { return f.mode }
func (f fakeInfo) ModTime() time.Time { return f.mtime }
func (f fakeInfo) IsDir() bool        { return f.mode.IsDir() }
func (f fakeInfo) Sys() interface{}   { return nil }

type fakeClient struct {
	dirs      map[string][]os.FileInfo
	stats     map[string]os.FileInfo
	realpaths map[string]string
}

func (c *fakeClient) ReadDir(p string) ([]os.FileInfo, error) {
	if infos, ok := c.dirs[p]; ok {
		return infos, nil
	}
	return nil, fs.ErrNotExist
}

func (c *fakeClient) Stat(p string) (os.FileInfo, error) {
	if info, ok := c.stats[p]; ok {
		return info, nil
	}
	if _, ok := c.dirs[p]; ok {
		return fakeInfo{name: p, mode: os.ModeDir | 0o755}, nil
	}
	return nil, fs.ErrNotExist
}

func (c *fakeClient) RealPath(p string) (string, error) {
	if r, ok := c.realpaths[p]; ok {
		return r, nil
	}
	return "", errors.New("no such path")
}

func TestReadDirSortsAndFilters(t *testing.T) {
	now := time.Unix(1700000000, 0)
	client := &fakeClient{
		dirs: map[string][]os.FileInfo{
			"/data": {
				fakeInfo{name: "zebra", size: 10, mode: 0o644, mtime: now},
				fakeInfo{name: "alpha", mode: os.ModeDir | 0o755, mtime: now},
				fakeInfo{name: "sock", mode: os.ModeSocket},
				fakeInfo{name: "pipe", mode: os.ModeNamedPipe},
				fakeInfo{name: "link", size: 9, mode: os.ModeSymlink | 0o777, mtime: now},
			},
		},
	}
	l := NewWithClient(client)

	entries, err := l.ReadDir("/data")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	// Sockets and pipes are dropped; the rest is sorted by name.
	wantNames := []string{"alpha", "link", "zebra"}
	if len(entries) != len(wantNames) {
		t.Fatalf("got %d entries %v, want %v", len(entries), entries, wantNames)
	}
	for i, want := range wantNames {
		if entries[i].Name != want {
			t.Errorf("entries[%d].Name = %q, want %q", i, entries[i].Name, want)
		}
	}

	if !entries[0].IsDir {
		t.Error("alpha should be a directory")
	}
	if entries[0].Size != 0 {
		t.Error("directories must not report their own size")
	}

	// Symlinks are plain files with the link's own size, never followed.
	link := entries[1]
	if link.IsDir || link.Size != 9 {
		t.Errorf("link entry = %+v", link)
	}

	for _, e := range entries {
		if e.Dev != 0 {
			t.Errorf("%s: dev = %d, want 0 (not available over sftp)", e.Name, e.Dev)
		}
		if e.Nlink != 1 {
			t.Errorf("%s: nlink = %d, want 1", e.Name, e.Nlink)
		}
	}
}

func TestReadDirNotFound(t *testing.T) {
	l := NewWithClient(&fakeClient{dirs: map[string][]os.FileInfo{}})
	_, err := l.ReadDir("/nope")
	if !errors.Is(err, fsys.ErrNotFound) {
		t.Errorf("ReadDir(missing) = %v, want ErrNotFound", err)
	}
}

func TestStat(t *testing.T) {
	client := &fakeClient{
		dirs: map[string][]os.FileInfo{"/data": {}},
		stats: map[string]os.FileInfo{
			"/data/f": fakeInfo{name: "f", size: 7, mode: 0o644},
		},
	}
	l := NewWithClient(client)

	e, err := l.Stat("/data/f")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if e.IsDir || e.Size != 7 {
		t.Errorf("entry = %+v", e)
	}

	e, err = l.Stat("/data")
	if err != nil {
		t.Fatalf("Stat dir: %v", err)
	}
	if !e.IsDir {
		t.Error("directory stat: IsDir = false")
	}

	if _, err := l.Stat("/missing"); !errors.Is(err, fsys.ErrNotFound) {
		t.Errorf("Stat(missing) = %v, want ErrNotFound", err)
	}
}

func TestJoinIsPOSIX(t *testing.T) {
	l := NewWithClient(&fakeClient{})
	if got := l.Join("a", "b", "c"); got != "a/b/c" {
		t.Errorf("Join = %q, want a/b/c", got)
	}
}

func TestResolve(t *testing.T) {
	client := &fakeClient{
		realpaths: map[string]string{".": "/home/user"},
	}
	l := NewWithClient(client)

	if got := l.Resolve(""); got != "/home/user" {
		t.Errorf("Resolve(\"\") = %q, want /home/user", got)
	}
	// Unresolvable paths fall back to a local clean.
	if got := l.Resolve(`foo\bar//baz`); got != "foo/bar/baz" {
		t.Errorf("Resolve fallback = %q", got)
	}
}

func TestCleanRemotePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "."},
		{"/a//b/./c", "/a/b/c"},
		{`a\b`, "a/b"},
		{"/", "/"},
	}
	for _, tt := range tests {
		if got := cleanRemotePath(tt.in); got != tt.want {
			t.Errorf("cleanRemotePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSSHTarget(t *testing.T) {
	user, host, err := parseSSHTarget("alice@example.com")
	if err != nil || user != "alice" || host != "example.com" {
		t.Errorf("parseSSHTarget = %q %q %v", user, host, err)
	}

	for _, bad := range []string{"", "nouser", "@host", "user@"} {
		if _, _, err := parseSSHTarget(bad); err == nil {
			t.Errorf("parseSSHTarget(%q) succeeded, want error", bad)
		}
	}
}
