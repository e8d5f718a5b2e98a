//go:build windows

package fsys

import "os"

// statInfo holds platform-specific file metadata.
type statInfo struct {
	dev   uint64
	nlink uint64
	ok    bool
}

// getStatInfo is a stub on Windows: device ids and link counts are not
// available from os.FileInfo, so cross-filesystem detection is disabled.
func getStatInfo(info os.FileInfo) statInfo {
	return statInfo{}
}
