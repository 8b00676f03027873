package command

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/imerge-tools/imerge/pkg/imerge"
	"github.com/imerge-tools/imerge/pkg/vcs"
)

// newRecordCommand ports gitimerge.py's cmd_record: incorporate an
// already-built merge commit as the manual merge at its blocked cell,
// without assuming it was built via the scratch-branch flow that
// `continue` cleans up.
func newRecordCommand(g *Globals) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "record [--name <name>] <commit>",
		Short: "record a manually built merge commit at its blocked cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				s, err := readState(ctx, v, name)
				if err != nil {
					return err
				}
				commit, err := v.CommitOid(ctx, args[0])
				if err != nil {
					return err
				}
				return imerge.Record(ctx, v, s, commit)
			}))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the incremental merge")
	return cmd
}
