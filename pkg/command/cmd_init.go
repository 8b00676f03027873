package command

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/imerge-tools/imerge/pkg/imerge"
	"github.com/imerge-tools/imerge/pkg/vcs"
)

type startOpts struct {
	goal        string
	branch      string
	manual      bool
	firstParent bool
}

func addStartFlags(cmd *cobra.Command, o *startOpts, defaultGoal string) {
	cmd.Flags().StringVar(&o.goal, "goal", defaultGoal, "the goal of the incremental merge")
	cmd.Flags().StringVar(&o.branch, "branch", "", "branch to store the result to (default: the merge name)")
	cmd.Flags().BoolVar(&o.manual, "manual", false, "ask the user to complete every merge manually")
	cmd.Flags().BoolVar(&o.firstParent, "first-parent", false, "handle only first-parent ancestry")
}

// newInitCommand ports gitimerge.py's cmd_init: computes the boundary
// between HEAD and tip2 and writes a fresh, empty MergeState, without
// attempting to fill in any of its frontier.
func newInitCommand(g *Globals) *cobra.Command {
	o := &startOpts{}
	cmd := &cobra.Command{
		Use:   "init <name> <tip2>",
		Short: "initialize a new incremental merge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, tip2Spec := args[0], args[1]
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				return initMerge(ctx, v, name, tip2Spec, o)
			}))
		},
	}
	addStartFlags(cmd, o, imerge.GoalFull)
	return cmd
}

// newStartCommand ports gitimerge.py's cmd_start: init followed
// immediately by an attempt to auto-complete the frontier.
func newStartCommand(g *Globals) *cobra.Command {
	o := &startOpts{}
	cmd := &cobra.Command{
		Use:   "start <name> <tip1> <tip2>",
		Short: "start a new incremental merge (init + continue)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, tip1Spec, tip2Spec := args[0], args[1], args[2]
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				return startMerge(ctx, v, name, tip1Spec, tip2Spec, o)
			}))
		},
	}
	addStartFlags(cmd, o, imerge.GoalFull)
	return cmd
}

func initMerge(ctx context.Context, v vcs.Vcs, name, tip2Spec string, o *startOpts) error {
	if err := v.RequireCleanWorktree(ctx); err != nil {
		return err
	}
	tip1, err := v.CommitOid(ctx, "HEAD")
	if err != nil {
		return errors.Wrap(err, "resolving HEAD")
	}
	tip2, err := v.CommitOid(ctx, tip2Spec)
	if err != nil {
		return err
	}
	branch := o.branch
	if branch == "" {
		branch = name
	}
	_, err = initializeAndSave(ctx, v, name, tip1, tip2, o.goal, nil, o.manual, branch, o.firstParent)
	return err
}

func startMerge(ctx context.Context, v vcs.Vcs, name, tip1Spec, tip2Spec string, o *startOpts) error {
	if err := v.RequireCleanWorktree(ctx); err != nil {
		return err
	}
	tip1, err := v.CommitOid(ctx, tip1Spec)
	if err != nil {
		return err
	}
	tip2, err := v.CommitOid(ctx, tip2Spec)
	if err != nil {
		return err
	}
	branch := o.branch
	if branch == "" {
		branch = name
	}
	s, err := initializeAndSave(ctx, v, name, tip1, tip2, o.goal, nil, o.manual, branch, o.firstParent)
	if err != nil {
		return err
	}
	return runToCompletionOrBlock(ctx, v, s)
}
