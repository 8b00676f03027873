package command

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/imerge-tools/imerge/pkg/imerge"
	"github.com/imerge-tools/imerge/pkg/vcs"
)

// newContinueCommand ports gitimerge.py's cmd_continue: incorporate the
// manual merge the user just committed on the scratch branch (if any)
// and resume automatic completion, leaving the worktree pointed at the
// next conflict if one remains.
func newContinueCommand(g *Globals) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "continue [--name <name>]",
		Short: "record a manual merge and continue the incremental merge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				s, err := readState(ctx, v, name)
				if err != nil {
					return err
				}
				return imerge.Continue(ctx, v, s)
			}))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the incremental merge")
	return cmd
}

// newAutofillCommand ports gitimerge.py's cmd_autofill: attempt to
// advance the frontier as far as possible without ever touching the
// worktree's checked-out branch, restoring HEAD when done.
func newAutofillCommand(g *Globals) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "autofill [--name <name>]",
		Short: "automatically fill in as much of the merge frontier as possible",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				return autofill(ctx, v, name)
			}))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the incremental merge")
	return cmd
}

func autofill(ctx context.Context, v vcs.Vcs, name string) error {
	if err := v.RequireCleanWorktree(ctx); err != nil {
		return err
	}
	s, err := readState(ctx, v, name)
	if err != nil {
		return err
	}
	previousBranch, err := v.DetachHead(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if previousBranch != "" {
			_ = v.Checkout(ctx, previousBranch, true)
		}
	}()
	return imerge.AutoCompleteFrontier(ctx, v, s)
}
