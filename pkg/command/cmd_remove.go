package command

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/imerge-tools/imerge/pkg/imerge"
	"github.com/imerge-tools/imerge/pkg/vcs"
)

// newRemoveCommand ports gitimerge.py's cmd_remove: delete every ref
// under the named merge's namespace without simplifying it first.
func newRemoveCommand(g *Globals) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "remove [--name <name>]",
		Short: "remove all refs associated with an incremental merge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				resolved, err := chooseMergeName(ctx, v, name)
				if err != nil {
					return err
				}
				return imerge.Remove(ctx, v, resolved)
			}))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the incremental merge")
	return cmd
}
