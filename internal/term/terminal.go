// Package term detects terminal capabilities: whether a file descriptor is a
// real terminal (including Cygwin/MSYS2 ptys on Windows) and what color
// depth it supports.
package term

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

type ColorMode int

const (
	NoColor ColorMode = iota
	Has256Color
	HasTrueColor
)

var (
	StderrMode ColorMode
	StdoutMode ColorMode
)

func atob(s string, fallback bool) bool {
	if s == "" {
		return fallback
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return b
}

func detectTermColorMode() ColorMode {
	if atob(os.Getenv("IMERGE_FORCE_TRUECOLOR"), false) {
		return HasTrueColor
	}
	if atob(os.Getenv("NO_COLOR"), false) {
		return NoColor
	}
	if _, ok := os.LookupEnv("WT_SESSION"); ok {
		return HasTrueColor
	}
	colorTermEnv := os.Getenv("COLORTERM")
	termEnv := os.Getenv("TERM")
	if strings.Contains(termEnv, "24bit") ||
		strings.Contains(termEnv, "truecolor") ||
		strings.Contains(colorTermEnv, "24bit") ||
		strings.Contains(colorTermEnv, "truecolor") {
		return HasTrueColor
	}
	if strings.Contains(termEnv, "256") || strings.Contains(colorTermEnv, "256") {
		return Has256Color
	}
	return NoColor
}

func init() {
	colorMode := detectTermColorMode()
	if IsTerminal(os.Stderr.Fd()) {
		StderrMode = colorMode
	}
	if IsTerminal(os.Stdout.Fd()) {
		StdoutMode = colorMode
	}
}

func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd)) || IsCygwinTerminal(fd)
}

func IsNativeTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

func GetSize(fd int) (width, height int, err error) {
	return term.GetSize(fd)
}
