package command

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/imerge-tools/imerge/pkg/imerge"
	"github.com/imerge-tools/imerge/pkg/vcs"
)

// newMergeCommand ports gitimerge.py's cmd_merge. With a commit
// argument it starts a brand-new goal=merge incremental merge of
// commit into HEAD; without one it re-simplifies an already-complete
// named merge with goal=merge, the way `imerge simplify --goal=merge`
// would, but without requiring --goal.
func newMergeCommand(g *Globals) *cobra.Command {
	var name, branch string
	cmd := &cobra.Command{
		Use:   "merge [--name <name>] [commit]",
		Short: "start or finish a simple merge via incremental merge",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var commit string
			if len(args) == 1 {
				commit = args[0]
			}
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				return startOrSimplifyGoal(ctx, v, name, branch, commit, imerge.GoalMerge)
			}))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the incremental merge")
	cmd.Flags().StringVar(&branch, "branch", "", "branch to store the result to")
	return cmd
}

// newRebaseCommand ports gitimerge.py's cmd_rebase, restricted to the
// re-simplify form: it sets goal=rebase on an already-complete named
// merge and writes the result, the way cmd_simplify would with
// --goal=rebase baked in.
func newRebaseCommand(g *Globals) *cobra.Command {
	var name, branch string
	cmd := &cobra.Command{
		Use:   "rebase [--name <name>]",
		Short: "simplify a completed incremental merge into a rebase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				return startOrSimplifyGoal(ctx, v, name, branch, "", imerge.GoalRebase)
			}))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the incremental merge")
	cmd.Flags().StringVar(&branch, "branch", "", "branch to store the result to")
	return cmd
}

// startOrSimplifyGoal implements the shared merge/rebase shape: given a
// commit it behaves like cmd_merge/cmd_rebase (start a new incremental
// merge of commit into HEAD with the given goal); given none, it acts
// like cmd_simplify with the goal pinned, against the named (or
// default) merge.
func startOrSimplifyGoal(ctx context.Context, v vcs.Vcs, name, branch, commitSpec, goal string) error {
	if err := v.RequireCleanWorktree(ctx); err != nil {
		return err
	}
	if commitSpec == "" {
		s, err := readState(ctx, v, name)
		if err != nil {
			return err
		}
		return simplifyAndSave(ctx, v, s, goal, branch, false)
	}

	tip1, err := v.CommitOid(ctx, "HEAD")
	if err != nil {
		return errors.Wrap(err, "resolving HEAD")
	}
	tip2, err := v.CommitOid(ctx, commitSpec)
	if err != nil {
		return err
	}
	if name == "" {
		name = commitSpec
	}
	if branch == "" {
		if cur, err := currentBranch(ctx, v); err == nil && branchNameLooksValid(cur) {
			branch = cur
		} else {
			branch = name
		}
	}
	s, err := initializeAndSave(ctx, v, name, tip1, tip2, goal, nil, false, branch, true)
	if err != nil {
		return err
	}
	return runToCompletionOrBlock(ctx, v, s)
}
