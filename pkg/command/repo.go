package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/imerge-tools/imerge/pkg/imerge"
	"github.com/imerge-tools/imerge/pkg/vcs"
)

// chooseMergeName resolves the merge a subcommand should act on: the
// explicit --name flag if given, otherwise imerge.default, otherwise
// the sole existing incremental merge, matching gitimerge.py's
// choose_merge_name.
func chooseMergeName(ctx context.Context, v vcs.Vcs, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	if def, ok, err := v.Config(ctx, "imerge.default"); err == nil && ok && def != "" {
		return def, nil
	}
	names, err := imerge.List(ctx, v)
	if err != nil {
		return "", err
	}
	switch len(names) {
	case 0:
		return "", errors.New("no incremental merge is in progress")
	case 1:
		return names[0], nil
	default:
		return "", errors.Errorf("multiple incremental merges in progress; specify --name (one of: %s)", strings.Join(names, ", "))
	}
}

// rememberDefault sets imerge.default to name once more than one merge
// exists, the same trigger gitimerge.py's set_default_imerge_name uses.
func rememberDefault(ctx context.Context, v vcs.Vcs, name string) error {
	names, err := imerge.List(ctx, v)
	if err != nil {
		return err
	}
	if len(names) > 1 {
		return v.SetConfig(ctx, "imerge.default", name)
	}
	return nil
}

// readState loads the named merge's state, resolving the implicit name
// the same way chooseMergeName does.
func readState(ctx context.Context, v vcs.Vcs, name string) (*imerge.MergeState, error) {
	resolved, err := chooseMergeName(ctx, v, name)
	if err != nil {
		return nil, err
	}
	return imerge.ReadState(ctx, v, resolved)
}

// initializeAndSave computes tip1/tip2's boundary and writes a fresh
// MergeState, registering it as the default merge name if it is not
// the only one.
func initializeAndSave(ctx context.Context, v vcs.Vcs, name string, tip1, tip2 vcs.Oid, goal string, goalopts map[string]any, manual bool, branch string, firstParent bool) (*imerge.MergeState, error) {
	boundary, err := vcs.ComputeBoundary(ctx, v, tip1, tip2, firstParent)
	if err != nil {
		return nil, err
	}
	s := imerge.InitializeState(name, boundary, goal, goalopts, manual, branch)
	if err := s.Save(ctx, v); err != nil {
		return nil, err
	}
	if err := rememberDefault(ctx, v, name); err != nil {
		return nil, err
	}
	return s, nil
}

// runToCompletionOrBlock drives auto-completion of s's frontier; on a
// block it stages the scratch branch for a manual merge and reports the
// instruction to the user instead of treating it as a failure.
func runToCompletionOrBlock(ctx context.Context, v vcs.Vcs, s *imerge.MergeState) error {
	err := imerge.AutoCompleteFrontier(ctx, v, s)
	if err == nil {
		fmt.Fprintln(os.Stderr, "Merge is complete!")
		return nil
	}
	var blocked *imerge.FrontierBlockedError
	if !errors.As(err, &blocked) {
		return err
	}
	if rmErr := imerge.RequestUserMerge(ctx, v, s, blocked.I1, blocked.I2); rmErr != nil {
		return rmErr
	}
	fmt.Fprintf(os.Stderr,
		"Conflict at %d-%d; resolve it in the worktree, commit, and run `imerge continue`.\n",
		blocked.I1, blocked.I2)
	return nil
}

// branchNameLooksValid is a loose sanity check used to decide whether
// the currently checked-out branch is usable as the --branch default,
// mirroring gitimerge.py's check_branch_name_format (rejecting names
// with a leading '-' or containing whitespace).
func branchNameLooksValid(name string) bool {
	if name == "" || strings.HasPrefix(name, "-") {
		return false
	}
	return !strings.ContainsAny(name, " \t\n")
}

// currentBranch returns the short name of the checked-out branch, or ""
// if HEAD is detached.
func currentBranch(ctx context.Context, v vcs.Vcs) (string, error) {
	g, ok := v.(interface {
		HeadBranch(ctx context.Context) (string, error)
	})
	if !ok {
		return "", nil
	}
	return g.HeadBranch(ctx)
}
