package command

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the imerge command tree: one subcommand per verb
// in spec §6, sharing the Globals flags bound on the root command the way
// the teacher's own cmd/* entrypoints wire a single Globals struct into
// every leaf command.
func NewRootCommand() *cobra.Command {
	g := &Globals{}
	root := &cobra.Command{
		Use:           "imerge",
		Short:         "incremental pairwise merge between two branches",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&g.Verbose, "verbose", "v", false, "make the operation more talkative")
	root.PersistentFlags().StringVar(&g.GitDir, "git-dir", "", "path to the repository's .git directory")
	root.PersistentFlags().StringVar(&g.WorkTree, "work-tree", "", "path to the repository worktree")

	root.AddCommand(
		newListCommand(g),
		newInitCommand(g),
		newStartCommand(g),
		newMergeCommand(g),
		newRebaseCommand(g),
		newDropCommand(g),
		newRevertCommand(g),
		newContinueCommand(g),
		newRecordCommand(g),
		newAutofillCommand(g),
		newSimplifyCommand(g),
		newFinishCommand(g),
		newDiagramCommand(g),
		newRemoveCommand(g),
		newReparentCommand(g),
	)
	return root
}
