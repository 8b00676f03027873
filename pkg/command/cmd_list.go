package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imerge-tools/imerge/pkg/imerge"
	"github.com/imerge-tools/imerge/pkg/vcs"
)

// newListCommand lists the incremental merges currently in progress,
// marking the active one (imerge.default, or the sole merge if there is
// only one) with a leading '*', matching gitimerge.py's cmd_list.
func newListCommand(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list incremental merges in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				return listMerges(ctx, v)
			}))
		},
	}
}

func listMerges(ctx context.Context, v vcs.Vcs) error {
	names, err := imerge.List(ctx, v)
	if err != nil {
		return err
	}
	defaultName, _, err := v.Config(ctx, "imerge.default")
	if err != nil {
		return err
	}
	if defaultName == "" && len(names) == 1 {
		defaultName = names[0]
	}
	for _, name := range names {
		if name == defaultName {
			fmt.Printf("* %s\n", name)
		} else {
			fmt.Printf("  %s\n", name)
		}
	}
	return nil
}
