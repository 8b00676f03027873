// Package trace provides the verbose, human-aimed diagnostic output used
// throughout the command layer: a Debuger's DbgPrint is silent unless it
// was built with verbose set (from -v/--verbose); the package-level
// DbgPrint always prints. Both color their output when the terminal
// supports it.
package trace

import (
	"fmt"
	"os"
	"strings"

	"github.com/mgutz/ansi"

	"github.com/imerge-tools/imerge/internal/term"
)

type Debuger interface {
	DbgPrint(format string, args ...any)
}

func NewDebuger(verbose bool) Debuger {
	return &debuger{verbose: verbose}
}

type debuger struct {
	verbose bool
}

func DbgPrint(format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	var b strings.Builder
	for _, line := range strings.Split(message, "\n") {
		if term.StderrMode == term.NoColor {
			b.WriteString(line)
			b.WriteByte('\n')
			continue
		}
		b.WriteString(ansi.Color("* "+line, "yellow"))
		b.WriteByte('\n')
	}
	_, _ = os.Stderr.WriteString(b.String())
}

func (d debuger) DbgPrint(format string, args ...any) {
	if !d.verbose {
		return
	}
	DbgPrint(format, args...)
}

var _ Debuger = &debuger{}
