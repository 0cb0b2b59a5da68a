package gotlist

import (
	"net/url"
	"strings"
)

// GetFilename returns the last path segment of an absolute URL,
// or an empty string if the URL is invalid or has no usable segment.
func GetFilename(URL string) string {
	name, _ := fileName(URL)
	return name
}

// fileName returns the last path segment of URL, or a non-empty reason
// when no file name can be derived from it.
func fileName(URL string) (name, reason string) {

	u, err := url.Parse(URL)

	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", "url is not a valid absolute url"
	}

	if name = lastSegment(u); name == "" {
		return "", "url has no file name"
	}

	return name, ""
}

func lastSegment(u *url.URL) string {

	name := u.Path

	if i := strings.LastIndex(name, "/"); i != -1 {
		name = name[i+1:]
	}

	// Never escape the destination dir.
	if name == "." || name == ".." {
		return ""
	}

	return name
}
