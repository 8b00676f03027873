package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imerge-tools/imerge/pkg/imerge"
	"github.com/imerge-tools/imerge/pkg/vcs"
)

// newReparentCommand ports gitimerge.py's cmd_reparent /
// reparent_recursively: rebuild start..end with start's parents
// replaced, printing the oid of the rebuilt end.
func newReparentCommand(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reparent <start> <parents>... <end>",
		Short: "change the parents of a commit and its descendants",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := args[0]
			end := args[len(args)-1]
			parentSpecs := args[1 : len(args)-1]
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				return reparent(ctx, v, start, parentSpecs, end)
			}))
		},
	}
	return cmd
}

func reparent(ctx context.Context, v vcs.Vcs, startSpec string, parentSpecs []string, endSpec string) error {
	start, err := v.CommitOid(ctx, startSpec)
	if err != nil {
		return err
	}
	end, err := v.CommitOid(ctx, endSpec)
	if err != nil {
		return err
	}
	parents := make([]vcs.Oid, len(parentSpecs))
	for i, spec := range parentSpecs {
		oid, err := v.CommitOid(ctx, spec)
		if err != nil {
			return err
		}
		parents[i] = oid
	}
	newEnd, err := imerge.Reparent(ctx, v, start, parents, end)
	if err != nil {
		return err
	}
	fmt.Println(newEnd)
	return nil
}
