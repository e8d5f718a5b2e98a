//go:build !windows

package fsys

import (
	"os"
	"syscall"
)

// statInfo holds platform-specific file metadata.
type statInfo struct {
	dev   uint64
	nlink uint64
	ok    bool // true if platform stat was available
}

// getStatInfo extracts device id and link count from file info. Backends
// without a syscall-level stat (e.g. an in-memory fs) report zero values.
func getStatInfo(info os.FileInfo) statInfo {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return statInfo{}
	}
	return statInfo{
		dev:   uint64(stat.Dev),
		nlink: uint64(stat.Nlink),
		ok:    true,
	}
}
