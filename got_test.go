package gotlist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestGot(t *testing.T) *Got {

	g := NewWithContext(context.Background())
	g.Dir = t.TempDir()
	g.Workers = 2
	g.Interval = 10 * time.Millisecond
	g.Output = io.Discard
	g.Logger = discardLogger
	g.Verbose = true

	return g
}

func TestMirror(t *testing.T) {

	g := newTestGot(t)

	summary, err := g.Mirror(httpt.URL + "/manifest")

	if err != nil {
		t.Fatal(err)
	}

	if summary.ID == "" {
		t.Error("Summary should have an id")
	}

	if summary.Workers != 2 {
		t.Errorf("Expecting 2 workers, but got %d", summary.Workers)
	}

	if len(summary.Results) != 3 {
		t.Fatalf("Expecting 3 results, but got %d", len(summary.Results))
	}

	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Errorf("Expecting 2 succeeded and 1 failed, but got %d and %d", summary.Succeeded, summary.Failed)
	}

	if want := uint64(len(fixtureA) + len(fixtureB)); summary.Bytes != want {
		t.Errorf("Expecting %d bytes, but got %d", want, summary.Bytes)
	}

	fixtures := map[string][]byte{
		"a.bin": fixtureA,
		"b.bin": fixtureB,
	}

	for _, r := range summary.Results {

		want, ok := fixtures[r.File.Name]

		if !ok {

			if r.State != StateFailed || !errors.Is(r.Err, ErrInvalidResponse) {
				t.Errorf("%s: expecting an invalid response failure, but got %s %v", r.File.Name, r.State, r.Err)
			}
			continue
		}

		if r.State != StateSucceeded {
			t.Errorf("%s: expecting succeeded, but got %s: %v", r.File.Name, r.State, r.Err)
			continue
		}

		data, err := os.ReadFile(filepath.Join(g.Dir, r.File.Name))

		if err != nil {
			t.Error(err)
			continue
		}

		if md5Hex(data) != md5Hex(want) || r.Digest != md5Hex(want) {
			t.Errorf("%s: corrupted file", r.File.Name)
		}
	}

	if g.Metrics.Succeeded() != 2 || g.Metrics.Failed() != 1 {
		t.Errorf("Unexpected metrics: %s", g.Metrics)
	}
}

func TestMirrorManifestErrors(t *testing.T) {

	g := newTestGot(t)

	if _, err := g.Mirror(httpt.URL + "/manifest?broken=1"); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("Expecting ErrInvalidResponse, but got %v", err)
	}

	if _, err := g.Mirror(httpt.URL + "/not_found"); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("Expecting ErrInvalidResponse, but got %v", err)
	}

	var merr *ManifestError

	if _, err := g.Mirror("http://127.0.0.1:1/manifest"); !errors.As(err, &merr) || !errors.Is(err, ErrUnreachable) {
		t.Errorf("Expecting unreachable *ManifestError, but got %v", err)
	}

	entries, err := os.ReadDir(g.Dir)

	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 0 {
		t.Errorf("No file should be created, but got %d", len(entries))
	}
}

// A failing file must not delay or fail the others.
func TestMirrorFailureIsolation(t *testing.T) {

	var srv *httptest.Server

	var served atomic.Int32

	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		switch r.URL.Path {

		case "/manifest":
			w.Write([]byte(`[
				{"url":"` + srv.URL + `/gone/x.bin","size":5},
				{"url":"` + srv.URL + `/slow/one.bin","size":1},
				{"url":"` + srv.URL + `/slow/two.bin","size":1}
			]`))
			return

		case "/slow/one.bin", "/slow/two.bin":
			served.Add(1)
			httpt.Config.Handler.ServeHTTP(w, r)
			return
		}

		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := newTestGot(t)
	g.Workers = 3

	summary, err := g.Mirror(srv.URL + "/manifest")

	if err != nil {
		t.Fatal(err)
	}

	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Errorf("Expecting 2 succeeded and 1 failed, but got %d and %d", summary.Succeeded, summary.Failed)
	}

	if served.Load() != 2 {
		t.Errorf("Expecting 2 served files, but got %d", served.Load())
	}

	for _, name := range []string{"one.bin", "two.bin"} {

		data, err := os.ReadFile(filepath.Join(g.Dir, name))

		if err != nil {
			t.Error(err)
			continue
		}

		if !bytes.Equal(data, fixtureB) {
			t.Errorf("%s: corrupted file", name)
		}
	}
}

func TestNewFromConfig(t *testing.T) {

	cfg := DefaultConfig().Merge(Config{
		Dir:     "out",
		Workers: 5,
		Timeout: time.Minute,
		Quiet:   true,
		Verbose: true,
	})

	g := NewFromConfig(context.Background(), cfg)

	if g.Dir != "out" || g.Workers != 5 || !g.Verbose {
		t.Errorf("Config not applied: %+v", g)
	}

	if g.Client == DefaultClient || g.Client.Timeout != time.Minute {
		t.Error("Expecting a client with the configured timeout")
	}

	if g.Output != io.Discard {
		t.Error("Quiet should discard the progress output")
	}

	if g.Context() == nil {
		t.Error("Context should be set")
	}
}

// Entries named alike must each report the digest of their own body.
func TestMirrorSharedName(t *testing.T) {

	var srv *httptest.Server

	slowly := func(w http.ResponseWriter, body []byte) {

		f := w.(http.Flusher)

		for i := 0; i < len(body); i += 32 * 1024 {

			end := i + 32*1024

			if end > len(body) {
				end = len(body)
			}

			w.Write(body[i:end])
			f.Flush()
			time.Sleep(5 * time.Millisecond)
		}
	}

	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		switch r.URL.Path {

		case "/manifest":
			fmt.Fprintf(w, `[{"url":%q,"size":%d},{"url":%q,"size":%d}]`,
				srv.URL+"/a/x.bin", len(fixtureA),
				srv.URL+"/b/x.bin", len(fixtureB),
			)

		case "/a/x.bin":
			slowly(w, fixtureA)

		case "/b/x.bin":
			slowly(w, fixtureB)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	g := newTestGot(t)

	summary, err := g.Mirror(srv.URL + "/manifest")

	if err != nil {
		t.Fatal(err)
	}

	if summary.Succeeded != 2 {
		t.Fatalf("Expecting 2 succeeded, but got %d", summary.Succeeded)
	}

	bodies := map[string][]byte{
		srv.URL + "/a/x.bin": fixtureA,
		srv.URL + "/b/x.bin": fixtureB,
	}

	for _, r := range summary.Results {

		if want := md5Hex(bodies[r.File.URL]); r.Digest != want {
			t.Errorf("%s: expecting digest %s, but got %s", r.File.URL, want, r.Digest)
		}
	}

	data, err := os.ReadFile(filepath.Join(g.Dir, "x.bin"))

	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(data, fixtureA) && !bytes.Equal(data, fixtureB) {
		t.Errorf("x.bin mixes both bodies: %d bytes, md5 %s", len(data), md5Hex(data))
	}
}

func TestMirrorBatchLog(t *testing.T) {

	out := new(syncBuffer)

	g := newTestGot(t)
	g.Logger = log.New(out, "", 0)

	for i := 0; i < 2; i++ {
		if _, err := g.Mirror(httpt.URL + "/manifest"); err != nil {
			t.Fatal(err)
		}
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	last := lines[len(lines)-1]

	if !strings.HasSuffix(last, "done: 2 succeeded, 1 failed, 358 kB downloaded") {
		t.Errorf("Expecting the tally of the last batch only, but got %q", last)
	}

	if g.Metrics.Succeeded() != 4 || g.Metrics.Failed() != 2 {
		t.Errorf("Metrics should span both batches: %s", g.Metrics)
	}
}
