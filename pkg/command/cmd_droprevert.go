package command

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/imerge-tools/imerge/pkg/imerge"
	"github.com/imerge-tools/imerge/pkg/vcs"
)

// newDropCommand ports gitimerge.py's cmd_drop: builds a synthetic tip2
// that reverts the named commits, then rebases the current branch onto
// it with goal=drop, recording goalopts["base"] (the commit before the
// dropped range) as the root simplify rebuilds history onto.
func newDropCommand(g *Globals) *cobra.Command {
	var name, branch string
	cmd := &cobra.Command{
		Use:   "drop <commit>...",
		Short: "drop one or more commits via incremental merge",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				return startDropRevert(ctx, v, name, branch, args, imerge.GoalDrop)
			}))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the incremental merge")
	cmd.Flags().StringVar(&branch, "branch", "", "branch to store the result to")
	return cmd
}

// newRevertCommand ports gitimerge.py's cmd_revert: same machinery as
// drop, but goal=revert adds commits that undo the given ones on top of
// the branch, so the original commits stay in its history instead of
// being removed from it.
func newRevertCommand(g *Globals) *cobra.Command {
	var name, branch string
	cmd := &cobra.Command{
		Use:   "revert <commit>...",
		Short: "revert one or more commits via incremental merge",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				return startDropRevert(ctx, v, name, branch, args, imerge.GoalRevert)
			}))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the incremental merge")
	cmd.Flags().StringVar(&branch, "branch", "", "branch to store the result to")
	return cmd
}

func startDropRevert(ctx context.Context, v vcs.Vcs, name, branch string, commitArgs []string, goal string) error {
	if err := v.RequireCleanWorktree(ctx); err != nil {
		return err
	}

	targets := make([]vcs.Oid, len(commitArgs))
	for i, a := range commitArgs {
		oid, err := v.CommitOid(ctx, a)
		if err != nil {
			return err
		}
		targets[i] = oid
	}
	end := targets[len(targets)-1]
	startParents, err := v.Parents(ctx, targets[0])
	if err != nil {
		return err
	}
	if len(startParents) == 0 {
		return errors.Errorf("cannot %s: %s has no parent", goal, targets[0].Short())
	}
	start := startParents[0]

	tip1, err := v.CommitOid(ctx, "HEAD")
	if err != nil {
		return errors.Wrap(err, "resolving HEAD")
	}
	if name == "" {
		if cur, err := currentBranch(ctx, v); err == nil && cur != "" {
			name = cur
		} else {
			return errors.New("HEAD is not a simple branch; specify --name")
		}
	}
	if branch == "" {
		if cur, err := currentBranch(ctx, v); err == nil && branchNameLooksValid(cur) {
			branch = cur
		} else {
			branch = name
		}
	}

	syntheticTip2, err := imerge.PrepareDropRevert(ctx, v, name, end, targets)
	if err != nil {
		return err
	}

	goalopts := map[string]any{}
	if goal == imerge.GoalDrop {
		goalopts["base"] = string(start)
	}

	s, err := initializeAndSave(ctx, v, name, tip1, syntheticTip2, goal, goalopts, false, branch, true)
	if err != nil {
		return err
	}
	return runToCompletionOrBlock(ctx, v, s)
}
