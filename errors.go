package gotlist

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable is returned when the manifest endpoint can't be reached.
	ErrUnreachable = errors.New("gotlist: manifest unreachable")

	// ErrInvalidResponse is returned for malformed manifests and non-2xx responses.
	ErrInvalidResponse = errors.New("gotlist: invalid response")

	// ErrInvalidURL is returned when a request can't be built from a file url.
	ErrInvalidURL = errors.New("gotlist: invalid url")

	// ErrDownloadFail is returned when a transfer breaks or yields no bytes.
	ErrDownloadFail = errors.New("gotlist: download failed")

	// ErrIO is returned for local file errors.
	ErrIO = errors.New("gotlist: io error")
)

// ManifestError is fatal to a whole batch.
type ManifestError struct {
	URL string
	Err error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.URL, e.Err)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// DownloadError is scoped to a single file.
type DownloadError struct {
	Name string
	URL  string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

func manifestErr(URL string, kind error, format string, args ...interface{}) error {
	return &ManifestError{
		URL: URL,
		Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)),
	}
}
