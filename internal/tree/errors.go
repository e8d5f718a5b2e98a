package tree

import "errors"

var (
	// ErrAlreadyBusy is returned when a scan is requested while one is in
	// progress on the same tree.
	ErrAlreadyBusy = errors.New("a directory read is already in progress")

	// ErrNotInTree is returned when a refresh or delete target is not part
	// of this tree.
	ErrNotInTree = errors.New("node is not part of this tree")
)
