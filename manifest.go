package gotlist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// SkipFunc is called for every manifest entry dropped while parsing.
type SkipFunc func(index int, reason string)

// FetchManifest downloads and parses the manifest at manifestURL.
// It returns a *ManifestError wrapping ErrUnreachable or ErrInvalidResponse.
func FetchManifest(ctx context.Context, client *http.Client, manifestURL string) ([]FileInfo, error) {
	return fetchManifest(ctx, client, manifestURL, nil)
}

func fetchManifest(ctx context.Context, client *http.Client, manifestURL string, skip SkipFunc) ([]FileInfo, error) {

	var (
		err error
		req *http.Request
		res *http.Response
	)

	if client == nil {
		client = DefaultClient
	}

	if req, err = NewRequest(ctx, http.MethodGet, manifestURL); err != nil {
		return nil, manifestErr(manifestURL, ErrUnreachable, "%v", err)
	}

	if res, err = client.Do(req); err != nil {
		return nil, manifestErr(manifestURL, ErrUnreachable, "%v", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, manifestErr(manifestURL, ErrInvalidResponse, "response status code is not ok: %d", res.StatusCode)
	}

	files, err := parseManifest(res.Body, skip)

	if err != nil {
		return nil, &ManifestError{URL: manifestURL, Err: err}
	}

	return files, nil
}

// ParseManifest decodes a JSON array of {"url": string, "size": integer} objects.
// Malformed entries are skipped, an empty result is ErrInvalidResponse.
func ParseManifest(r io.Reader) ([]FileInfo, error) {
	return parseManifest(r, nil)
}

func parseManifest(r io.Reader, skip SkipFunc) ([]FileInfo, error) {

	var doc interface{}

	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	// Trailing data means the body is not a single JSON document.
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after manifest", ErrInvalidResponse)
	}

	entries, ok := doc.([]interface{})

	if !ok {
		return nil, fmt.Errorf("%w: manifest is not a JSON array", ErrInvalidResponse)
	}

	files := make([]FileInfo, 0, len(entries))

	for i, entry := range entries {

		f, reason := fileInfoFromEntry(entry)

		if reason != "" {
			if skip != nil {
				skip(i, reason)
			}
			continue
		}

		files = append(files, f)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: manifest has no valid entries", ErrInvalidResponse)
	}

	return files, nil
}

// fileInfoFromEntry validates one manifest entry,
// it returns a non-empty reason when the entry must be skipped.
func fileInfoFromEntry(entry interface{}) (FileInfo, string) {

	obj, ok := entry.(map[string]interface{})

	if !ok {
		return FileInfo{}, "entry is not an object"
	}

	rawURL, ok := obj["url"].(string)

	if !ok {
		return FileInfo{}, "url is missing or not a string"
	}

	name, reason := fileName(rawURL)

	if reason != "" {
		return FileInfo{}, reason
	}

	num, ok := obj["size"].(json.Number)

	if !ok {
		return FileInfo{}, "size is missing or not a number"
	}

	size, err := strconv.ParseUint(num.String(), 10, 64)

	if err != nil {
		return FileInfo{}, "size is not a non-negative integer"
	}

	return FileInfo{URL: rawURL, Name: name, Size: size}, ""
}
