// Package command implements the imerge CLI: one cobra.Command per
// subcommand in spec §6, sharing a Globals struct the way the teacher's
// pkg/command wires its own subcommands against a single Globals.
package command

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/imerge-tools/imerge/internal/trace"
	"github.com/imerge-tools/imerge/pkg/imerge"
	"github.com/imerge-tools/imerge/pkg/vcs"
)

// Globals holds the flags bound on the root command and threaded into
// every subcommand, mirroring the teacher's own Globals (Verbose, CWD).
type Globals struct {
	Verbose  bool
	WorkTree string
	GitDir   string
}

func (g *Globals) open() (*vcs.Git, error) {
	root := g.WorkTree
	if root == "" {
		root = g.GitDir
	}
	if root == "" {
		root = "."
	}
	return vcs.Open(root, g.Verbose)
}

func die(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "fatal: "+format+"\n", a...)
}

func dieError(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", a...)
}

// isExpectedUserError reports the set of error kinds that are routine, user-facing
// outcomes rather than unexpected failures (spec §7's "expected" class).
func isExpectedUserError(err error) bool {
	switch errors.Cause(err).(type) {
	case *vcs.NothingToDoError,
		*vcs.UncleanWorktreeError,
		*vcs.NotFirstParentAncestorError,
		*vcs.NonlinearAncestryError,
		*vcs.InvalidBranchNameError,
		*vcs.InvalidRefNameError,
		*imerge.FrontierBlockedError,
		*imerge.NoSuchMergeError,
		*imerge.ManualMergeUnusableError,
		*imerge.NotABlockingCommitError,
		*imerge.CorruptStateError,
		*imerge.MergeInRangeError:
		return true
	}
	return false
}

// report prints err the way the teacher's die/die_error pair does
// (fatal: for unexpected failures, error: for expected ones) and
// returns the process exit code spec §7 calls for.
func report(err error) int {
	if err == nil {
		return 0
	}
	if isExpectedUserError(err) {
		dieError("%s", err)
		return 1
	}
	die("%s", err)
	return 128
}

// Run executes fn with a background context carrying the CLI's verbose
// trace sink, and translates its error into an exit code via report.
func Run(g *Globals, fn func(ctx context.Context, v vcs.Vcs) error) int {
	// GIT_IMERGE marks the environment for the duration of this
	// invocation, matching gitimerge.py's own GIT_IMERGE=1 convention.
	_ = os.Setenv("GIT_IMERGE", "1")
	v, err := g.open()
	if err != nil {
		return report(err)
	}
	trace.NewDebuger(g.Verbose).DbgPrint("imerge starting")
	return report(fn(context.Background(), v))
}

// runOrExit terminates the process with code if it is nonzero. Every
// subcommand's RunE ends with this: Run has already printed the
// fatal:/error: diagnostic, so there is nothing left for cobra to report.
func runOrExit(code int) error {
	if code != 0 {
		os.Exit(code)
	}
	return nil
}
