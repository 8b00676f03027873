package command

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imerge-tools/imerge/internal/term"
	"github.com/imerge-tools/imerge/pkg/imerge"
	"github.com/imerge-tools/imerge/pkg/imerge/diagram"
	"github.com/imerge-tools/imerge/pkg/vcs"
)

// newDiagramCommand ports gitimerge.py's cmd_diagram: render the
// current merge frontier as a colored terminal diagram, optionally
// also writing an HTML table to --html.
func newDiagramCommand(g *Globals) *cobra.Command {
	var name, htmlPath string
	cmd := &cobra.Command{
		Use:   "diagram [--name <name>]",
		Short: "display a diagram of the current state of a merge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrExit(Run(g, func(ctx context.Context, v vcs.Vcs) error {
				return renderDiagram(ctx, v, name, htmlPath)
			}))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the incremental merge")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write an HTML diagram to this path")
	return cmd
}

func renderDiagram(ctx context.Context, v vcs.Vcs, name, htmlPath string) error {
	s, err := readState(ctx, v, name)
	if err != nil {
		return err
	}
	grid, err := imerge.Diagram(ctx, v, s)
	if err != nil {
		return err
	}
	colored := term.StdoutMode != term.NoColor
	fmt.Println(diagram.Render(grid, string(s.Tip1), string(s.Tip2), colored))
	if htmlPath != "" {
		html := diagram.RenderHTML(grid, s.Name, "", 0)
		if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
			return err
		}
	}
	fmt.Print("Key:\n" + diagram.Legend)
	return nil
}
