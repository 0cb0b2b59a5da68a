package gotlist

import (
	"time"
)

// State of a download task.
type State int

const (
	StatePending State = iota
	StateAllocated
	StateStreaming
	StateSucceeded
	StateFailed
)

type (

	// FileInfo describes one remote file listed in a manifest.
	FileInfo struct {

		// Absolute source URL.
		URL string

		// Local file name, the last path segment of URL.
		Name string

		// Declared content length in bytes.
		Size uint64
	}

	// Result is the terminal outcome of one download.
	Result struct {
		File FileInfo

		State State

		// Hex MD5 of the downloaded file, empty unless succeeded.
		Digest string

		// Bytes received from the remote.
		Bytes uint64

		Err error

		Elapsed time.Duration
	}

	// Summary of a whole batch.
	Summary struct {
		ID string

		Workers int

		Results []Result

		Succeeded, Failed int

		Bytes uint64
	}
)

func (s State) String() string {

	switch s {
	case StatePending:
		return "pending"
	case StateAllocated:
		return "allocated"
	case StateStreaming:
		return "streaming"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}

	return "unknown"
}

// Done reports whether s is terminal.
func (s State) Done() bool {
	return s == StateSucceeded || s == StateFailed
}
