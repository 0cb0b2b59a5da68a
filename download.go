package gotlist

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DefaultBufferSize is the read buffer size of a download.
const DefaultBufferSize = 64 * 1024

// ErrAlreadyStarted is returned when Start is called twice on the same Download.
var ErrAlreadyStarted = errors.New("gotlist: download already started")

// Download is the unit of work of one manifest entry. It is owned by the
// goroutine running it and runs at most once.
type Download struct {
	File FileInfo

	Client *http.Client

	// Destination dir, the current dir if empty.
	Dir string

	BufferSize int

	// Bar to report progress to, may be nil.
	Bar *Bar

	ctx context.Context

	state State

	// Bytes received.
	size uint64

	digest string

	err error

	startedAt time.Time

	elapsed time.Duration
}

// NewDownload returns a pending download of file into dir.
func NewDownload(ctx context.Context, file FileInfo, dir string, bar *Bar) *Download {
	return &Download{
		ctx:    ctx,
		File:   file,
		Dir:    dir,
		Bar:    bar,
		Client: DefaultClient,
	}
}

// Start runs the download to a terminal state: the destination is
// pre-allocated to the declared size, the body is streamed into it, then
// the MD5 of the written file is computed. The bar is always finished.
func (d *Download) Start() (err error) {

	if d.state != StatePending {
		return ErrAlreadyStarted
	}

	d.init()

	defer func() {

		if v := recover(); v != nil {
			err = d.fail(ErrDownloadFail, fmt.Errorf("panic: %v", v), "Download failed", false)
		}

		d.err = err
		d.elapsed = time.Since(d.startedAt)
	}()

	file, err := d.allocate()

	if err != nil {
		return d.fail(ErrIO, err, "Creating file failed", false)
	}
	defer file.Close()

	err = d.stream(file)

	if cerr := file.Close(); err == nil && cerr != nil {
		err = d.fail(ErrIO, cerr, "Writing file failed", false)
	}

	if err != nil {
		return err
	}

	d.state = StateSucceeded

	// The file is downloaded even when the digest can't be computed.
	if d.digest, err = d.Checksum(); err != nil {
		d.Bar.Finish("failed to compute digest")
		return nil
	}

	d.Bar.Finish(d.digest)

	return nil
}

func (d *Download) init() {

	d.startedAt = time.Now()

	if d.ctx == nil {
		d.ctx = context.Background()
	}

	if d.Client == nil {
		d.Client = DefaultClient
	}

	if d.BufferSize <= 0 {
		d.BufferSize = DefaultBufferSize
	}
}

// allocate creates or truncates the destination and extends it to the declared size.
func (d *Download) allocate() (*os.File, error) {

	file, err := os.Create(d.Path())

	if err != nil {
		return nil, err
	}

	if err = file.Truncate(int64(d.File.Size)); err != nil {
		file.Close()
		return nil, err
	}

	d.state = StateAllocated

	return file, nil
}

// stream writes the response body to dest buffer by buffer at increasing offsets.
func (d *Download) stream(dest *os.File) error {

	var (
		err error
		req *http.Request
		res *http.Response
	)

	d.state = StateStreaming

	if req, err = NewRequest(d.ctx, http.MethodGet, d.File.URL); err != nil {
		return d.fail(ErrInvalidURL, err, "Invalid url", false)
	}

	if res, err = d.Client.Do(req); err != nil {
		return d.fail(ErrDownloadFail, err, "Download failed", false)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return d.fail(
			ErrInvalidResponse,
			fmt.Errorf("response status code is not ok: %d", res.StatusCode),
			fmt.Sprintf("Response status %d", res.StatusCode),
			true,
		)
	}

	d.Bar.SetMessage("Downloading...")

	var (
		offset int64
		buf    = make([]byte, d.BufferSize)
	)

	for {

		n, rerr := res.Body.Read(buf)

		if n > 0 {

			if _, err = dest.WriteAt(buf[:n], offset); err != nil {
				return d.fail(ErrIO, err, "Writing file failed", false)
			}

			offset += int64(n)
			d.size += uint64(n)
			d.Bar.Advance(uint64(n))
		}

		if rerr == io.EOF {
			break
		}

		if rerr != nil {
			return d.fail(ErrDownloadFail, rerr, "Download failed", false)
		}
	}

	// An empty body is only a valid file when nothing was expected.
	if offset == 0 && d.File.Size > 0 {
		return d.fail(ErrDownloadFail, errors.New("empty response body"), "Download failed", false)
	}

	// Keep exactly what was received.
	if err = dest.Truncate(offset); err != nil {
		return d.fail(ErrIO, err, "Writing file failed", false)
	}

	return nil
}

// fail moves the download to StateFailed and finishes its bar.
func (d *Download) fail(kind, cause error, msg string, empty bool) error {

	d.state = StateFailed

	if empty {
		d.Bar.FailEmpty(msg)
	} else {
		d.Bar.Fail(msg)
	}

	return &DownloadError{
		Name: d.File.Name,
		URL:  d.File.URL,
		Err:  fmt.Errorf("%w: %v", kind, cause),
	}
}

// Checksum returns the hex MD5 of the destination file content.
func (d *Download) Checksum() (string, error) {

	file, err := os.Open(d.Path())

	if err != nil {
		return "", err
	}
	defer file.Close()

	h := md5.New()

	if _, err = io.Copy(h, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Path returns the destination path.
func (d *Download) Path() string {
	return filepath.Join(d.Dir, d.File.Name)
}

// State returns the current state.
func (d *Download) State() State {
	return d.state
}

// Size returns received bytes.
func (d *Download) Size() uint64 {
	return d.size
}

// Digest returns the computed MD5, empty until succeeded.
func (d *Download) Digest() string {
	return d.digest
}

// Result returns the outcome of a finished download.
func (d *Download) Result() Result {
	return Result{
		File:    d.File,
		State:   d.state,
		Digest:  d.digest,
		Bytes:   d.size,
		Err:     d.err,
		Elapsed: d.elapsed,
	}
}

// Context returns download context.
func (d *Download) Context() context.Context {
	return d.ctx
}
