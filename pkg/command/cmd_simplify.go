package command

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/imerge-tools/imerge/pkg/imerge"
	"github.com/imerge-tools/imerge/pkg/vcs"
)

// newSimplifyCommand ports gitimerge.py's cmd_simplify: writes the
// named merge's simplified history to its branch without removing the
// merge's state.
func newSimplifyCommand(g *Globals) *cobra.Command {
	var name, branch, goal string
	var force bool
	cmd := &cobra.Command{
		Use:   "simplify [--name <name>]",
		Short: "simplify a completed incremental merge and write its branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				s, err := readState(ctx, v, name)
				if err != nil {
					return err
				}
				return simplifyAndSave(ctx, v, s, goal, branch, force)
			}))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the incremental merge")
	cmd.Flags().StringVar(&branch, "branch", "", "branch to store the result to")
	cmd.Flags().StringVar(&goal, "goal", "", "simplification goal (default: the value given at init/start)")
	cmd.Flags().BoolVar(&force, "force", false, "allow a non-fast-forward update of the target branch")
	return cmd
}

// newFinishCommand ports gitimerge.py's cmd_finish: simplify followed
// by removing the merge's ref namespace.
func newFinishCommand(g *Globals) *cobra.Command {
	var name, branch, goal string
	var force bool
	cmd := &cobra.Command{
		Use:   "finish [--name <name>]",
		Short: "simplify then remove a completed incremental merge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				s, err := readState(ctx, v, name)
				if err != nil {
					return err
				}
				if err := simplifyAndSave(ctx, v, s, goal, branch, force); err != nil {
					return err
				}
				return imerge.Remove(ctx, v, s.Name)
			}))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the incremental merge")
	cmd.Flags().StringVar(&branch, "branch", "", "branch to store the result to")
	cmd.Flags().StringVar(&goal, "goal", "", "simplification goal (default: the value given at init/start)")
	cmd.Flags().BoolVar(&force, "force", false, "allow a non-fast-forward update of the target branch")
	return cmd
}

// simplifyAndSave requires s's frontier to be complete, applies an
// optional goal/branch override, persists it, and writes the
// simplified history, gated by imerge.reuseexistingcommits.
func simplifyAndSave(ctx context.Context, v vcs.Vcs, s *imerge.MergeState, goal, branch string, force bool) error {
	complete, err := imerge.IsComplete(ctx, v, s)
	if err != nil {
		return err
	}
	if !complete {
		return errors.Errorf("merge %q is not yet complete", s.Name)
	}
	if goal != "" {
		s.Goal = goal
	}
	if branch != "" {
		s.Branch = branch
	}
	if err := s.Save(ctx, v); err != nil {
		return err
	}
	reuse := v.ConfigBool(ctx, "imerge.reuseexistingcommits", true)
	return imerge.Simplify(ctx, v, s, force, reuse)
}
