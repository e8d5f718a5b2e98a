// Package cache persists a scanned tree to a JSON cache file and restores it,
// so a tree can be inspected later without re-reading the filesystem.
//
// File layout:
//
//	[1, 0, {"progname":"dirtree","progver":"1.0","timestamp":1234567890},
//	  [{"name":"","kind":"root"},
//	    [{"name":"/path","kind":"dir","mtime":1234567890,"dev":64769},
//	      {"name":"file1","kind":"file","size":10,"mtime":1234567890},
//	      [{"name":"subdir","kind":"dir"},
//	        {"name":"file2","kind":"file","size":5}
//	      ]
//	    ]
//	  ]
//	]
//
// A directory is an array whose first element is its own entry; files are
// plain objects. Sizes of directories are not stored, they are recomputed
// from the restored children.
package cache

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sadopc/dirtree/internal/model"
)

// ErrFormat is wrapped by every error caused by malformed cache content, as
// opposed to I/O failures reading the file itself.
var ErrFormat = errors.New("invalid cache file format")

type cacheHeader struct {
	Progname  string `json:"progname"`
	Progver   string `json:"progver"`
	Timestamp int64  `json:"timestamp"`
}

type cacheEntry struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Size  int64  `json:"size,omitempty"`
	Mtime int64  `json:"mtime,omitempty"`
	Dev   uint64 `json:"dev,omitempty"`
	Nlink uint64 `json:"nlink,omitempty"`
	Err   bool   `json:"read_error,omitempty"`
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, avoiding verbose per-call checks.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) WriteString(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}

func (ew *errWriter) Write(data []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	n, err := ew.w.Write(data)
	if err != nil {
		ew.err = err
	}
	return n, err
}

// Write serializes the tree rooted at root to path. For file targets (not
// stdout), it writes to a temp file first and atomically renames on success,
// so a partial file is never left behind on error.
func Write(root *model.DirNode, path string, version string) (retErr error) {
	if path == "-" {
		return writeTo(root, os.Stdout, version)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dirtree-cache-*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create cache file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := writeTo(root, tmp, version); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		// On Windows, Rename cannot replace an existing destination.
		if runtime.GOOS != "windows" {
			return err
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("cannot replace cache file %s: %w", path, err)
		}
		if err := os.Rename(tmpPath, path); err != nil {
			return err
		}
	}
	return nil
}

func writeTo(root *model.DirNode, out io.Writer, version string) error {
	bw := bufio.NewWriterSize(out, 64*1024)
	ew := &errWriter{w: bw}

	ew.WriteString("[1, 0, ")
	if version == "" {
		version = "dev"
	}
	header := cacheHeader{
		Progname:  "dirtree",
		Progver:   version,
		Timestamp: time.Now().Unix(),
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return err
	}
	_, _ = ew.Write(headerJSON)
	ew.WriteString(",\n")

	writeDir(ew, root)

	ew.WriteString("\n]\n")
	if ew.err != nil {
		return ew.err
	}
	return bw.Flush()
}

func writeDir(ew *errWriter, dir *model.DirNode) {
	if ew.err != nil {
		return
	}

	ew.WriteString("[")
	_, _ = ew.Write(marshalEntry(ew, dirEntry(dir)))

	for _, child := range dir.GetChildren() {
		if ew.err != nil {
			return
		}
		ew.WriteString(",\n")

		switch c := child.(type) {
		case *model.DirNode:
			writeDir(ew, c)
		case *model.FileNode:
			_, _ = ew.Write(marshalEntry(ew, cacheEntry{
				Name:  c.Name,
				Kind:  c.Kind.String(),
				Size:  c.Size,
				Mtime: unixOrZero(c.Mtime),
				Dev:   c.Dev,
				Nlink: c.Nlink,
				Err:   c.Kind == model.KindError,
			}))
		}
	}

	ew.WriteString("]")
}

func dirEntry(dir *model.DirNode) cacheEntry {
	return cacheEntry{
		Name:  dir.Name,
		Kind:  dir.Kind.String(),
		Mtime: unixOrZero(dir.Mtime),
		Dev:   dir.Dev,
		Nlink: dir.Nlink,
		Err:   dir.State() == model.ReadError,
	}
}

func marshalEntry(ew *errWriter, e cacheEntry) []byte {
	data, err := json.Marshal(e)
	if err != nil {
		ew.err = err
		return nil
	}
	return data
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// Read restores a tree from a cache file. The returned node is the pseudo
// root; totals are recomputed lazily from the restored children. Malformed
// content yields an error wrapping ErrFormat.
func Read(path string) (*model.DirNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open cache file: %w", err)
	}

	// Top level is [version, minor, header, rootDir].
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("%w: expected at least 4 top-level elements, got %d", ErrFormat, len(raw))
	}

	var version int
	if err := json.Unmarshal(raw[0], &version); err != nil || version != 1 {
		return nil, fmt.Errorf("%w: unsupported version", ErrFormat)
	}

	root, err := parseDir(raw[3])
	if err != nil {
		return nil, err
	}
	if root.Kind != model.KindRoot {
		// Tolerate caches whose top element is a plain directory by
		// wrapping it in a fresh pseudo root.
		wrapped := model.NewRoot()
		wrapped.AddChild(root)
		root = wrapped
	}
	return root, nil
}

func parseDir(data json.RawMessage) (*model.DirNode, error) {
	// A directory is an array: [{dir_entry}, child1, child2, ...]
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("%w: directory is not an array: %w", ErrFormat, err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: empty directory array", ErrFormat)
	}

	var entry cacheEntry
	if err := json.Unmarshal(elements[0], &entry); err != nil {
		return nil, fmt.Errorf("%w: cannot parse directory entry: %w", ErrFormat, err)
	}
	kind, err := dirKind(entry.Kind)
	if err != nil {
		return nil, err
	}

	dir := model.NewDirNode(entry.Name, kind)
	dir.Mtime = timeOrZero(entry.Mtime)
	dir.Dev = entry.Dev
	dir.Nlink = entry.Nlink
	if entry.Err {
		dir.SetState(model.ReadError)
	} else {
		dir.SetState(model.ReadFinished)
	}

	for i := 1; i < len(elements); i++ {
		child := elements[i]
		trimmed := trimLeadingWhitespace(child)
		if len(trimmed) == 0 {
			continue
		}

		switch trimmed[0] {
		case '[':
			subDir, err := parseDir(child)
			if err != nil {
				return nil, err
			}
			dir.AddChild(subDir)
		case '{':
			var fe cacheEntry
			if err := json.Unmarshal(child, &fe); err != nil {
				return nil, fmt.Errorf("%w: cannot parse file entry: %w", ErrFormat, err)
			}
			kind := model.KindFile
			if fe.Err || fe.Kind == model.KindError.String() {
				kind = model.KindError
			}
			dir.AddChild(&model.FileNode{
				Name:  fe.Name,
				Size:  fe.Size,
				Mtime: timeOrZero(fe.Mtime),
				Dev:   fe.Dev,
				Nlink: fe.Nlink,
				Kind:  kind,
			})
		default:
			return nil, fmt.Errorf("%w: unexpected element %q", ErrFormat, trimmed[0])
		}
	}

	return dir, nil
}

func dirKind(s string) (model.NodeKind, error) {
	switch s {
	case model.KindDir.String(), "":
		return model.KindDir, nil
	case model.KindRoot.String():
		return model.KindRoot, nil
	case model.KindAggregate.String():
		return model.KindAggregate, nil
	case model.KindExcluded.String():
		return model.KindExcluded, nil
	default:
		return 0, fmt.Errorf("%w: unknown directory kind %q", ErrFormat, s)
	}
}

func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

func trimLeadingWhitespace(data []byte) []byte {
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return data[i:]
		}
	}
	return nil
}
