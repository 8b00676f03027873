// Command imerge performs incremental pairwise merges between two
// branches, localizing conflicts to single adjacent-commit merges.
package main

import (
	"os"

	"github.com/imerge-tools/imerge/pkg/command"
)

func main() {
	if err := command.NewRootCommand().Execute(); err != nil {
		os.Exit(128)
	}
}
