//go:build windows
// +build windows

package gotlist

// Windows doesn't handle the block-style very well
var (
	progressStyle     = "double-"
	barLeft, barRight = "[", "]"
)

func color(s string) string {
	return s
}

func statusColor(s string, failed bool) string {
	return s
}
