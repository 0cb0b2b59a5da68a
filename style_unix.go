//go:build !windows
// +build !windows

package gotlist

import (
	"gitlab.com/poldi1405/go-ansi"
)

var (
	progressStyle     = "block"
	barLeft, barRight = "|", "|"
)

func color(s string) string {
	return ansi.Blue(s)
}

func statusColor(s string, failed bool) string {

	if failed {
		return ansi.Red(s)
	}

	return ansi.Green(s)
}
