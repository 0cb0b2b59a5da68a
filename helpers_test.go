package gotlist

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"
)

// fixture returns size deterministic bytes seeded by seed.
func fixture(seed byte, size int) []byte {

	b := make([]byte, size)

	for i := range b {
		b[i] = seed + byte(i*7) + byte(i>>8)
	}

	return b
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

var (
	fixtureA = fixture(1, 200*1024+17)
	fixtureB = fixture(99, 150*1024+3)
)

var discardLogger = log.New(io.Discard, "", 0)

// NewHttptestServer serves the fixtures and the failure cases used by the tests.
//
//	/files/a.bin, /files/b.bin   fixture bytes
//	/slow/<name>                 fixture b bytes, sent slowly
//	/empty                       200 with no body
//	/short                       "hello"
//	/not_found                   404
//	/manifest?n=...              manifest of the fixtures, see manifestHandler
func NewHttptestServer() *httptest.Server {

	var srv *httptest.Server

	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		switch {

		case r.URL.Path == "/files/a.bin":
			w.Write(fixtureA)
			return

		case r.URL.Path == "/files/b.bin":
			w.Write(fixtureB)
			return

		case strings.HasPrefix(r.URL.Path, "/slow/"):

			f := w.(http.Flusher)

			for i := 0; i < len(fixtureB); i += 32 * 1024 {

				end := i + 32*1024

				if end > len(fixtureB) {
					end = len(fixtureB)
				}

				w.Write(fixtureB[i:end])
				f.Flush()
				time.Sleep(10 * time.Millisecond)
			}
			return

		case r.URL.Path == "/empty":
			w.WriteHeader(http.StatusOK)
			return

		case r.URL.Path == "/short":
			fmt.Fprint(w, "hello")
			return

		case r.URL.Path == "/manifest":
			manifestHandler(srv.URL, w, r)
			return
		}

		w.WriteHeader(http.StatusNotFound)
	}))

	return srv
}

// manifestHandler writes a manifest with a.bin, b.bin, a 404 entry
// and a malformed entry. ?broken=1 returns a non array document.
func manifestHandler(base string, w http.ResponseWriter, r *http.Request) {

	if r.URL.Query().Get("broken") == "1" {
		fmt.Fprint(w, `{"url":"nope"}`)
		return
	}

	fmt.Fprintf(w, `[
		{"url": %q, "size": %s},
		{"bogus": true},
		{"url": %q, "size": %s},
		{"url": %q, "size": 10}
	]`,
		base+"/files/a.bin", strconv.Itoa(len(fixtureA)),
		base+"/files/b.bin", strconv.Itoa(len(fixtureB)),
		base+"/files/missing.bin",
	)
}
