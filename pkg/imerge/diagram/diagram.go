// Package diagram renders an imerge grid and its merge frontier as
// either a colored terminal diagram or an HTML table, the way
// gitimerge.py's Diagram/HTMLDiagram classes do.
package diagram

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"

	"github.com/imerge-tools/imerge/internal/term"
	"github.com/imerge-tools/imerge/pkg/imerge"
)

// legend is gitimerge.py's default_formatter alphabet: one character per
// CellKind, plus the three frontier-edge overlay glyphs.
const (
	glyphUnknown   = '?'
	glyphManual    = '*'
	glyphAutomatic = '.'
	glyphBlocked   = '#'
	glyphUnblocked = '@'
	glyphBottom    = '-'
	glyphRight     = '|'
	glyphVertex    = '+'
)

func glyph(c imerge.DiagramCell) byte {
	vertex := imerge.FrontierBottomEdge | imerge.FrontierRightEdge
	if c.Kind != imerge.CellManual && c.Kind != imerge.CellBlocked && c.Kind != imerge.CellUnblocked {
		switch c.Frontier & vertex {
		case vertex:
			return glyphVertex
		case imerge.FrontierRightEdge:
			return glyphRight
		case imerge.FrontierBottomEdge:
			return glyphBottom
		}
	}
	switch c.Kind {
	case imerge.CellManual:
		return glyphManual
	case imerge.CellAutomatic:
		return glyphAutomatic
	case imerge.CellBlocked:
		return glyphBlocked
	case imerge.CellUnblocked:
		return glyphUnblocked
	default:
		return glyphUnknown
	}
}

// colorFor picks the terminal color gitimerge.py's default_formatter
// uses: green when the cell is "within" the frontier (recorded manually
// or covered by a frontier block), red otherwise.
func colorFor(c imerge.DiagramCell) string {
	within := c.Kind == imerge.CellManual || c.Frontier&imerge.FrontierWithin != 0
	if within {
		return "green+b"
	}
	return "red+b"
}

// Render draws grid as a plain-text diagram with row/column axis labels
// and tip1/tip2 annotations, colored when color is true.
func Render(grid [][]imerge.DiagramCell, tip1, tip2 string, color bool) string {
	if len(grid) == 0 {
		return ""
	}
	len1 := len(grid)
	len2 := len(grid[0])

	var b strings.Builder
	b.WriteString("   ")
	for i1 := 0; i1 < len1; i1 += 5 {
		fmt.Fprintf(&b, "%5d", i1)
	}
	b.WriteByte('\n')
	b.WriteString("   ")
	for i1 := 0; i1 < len1; i1 += 5 {
		fmt.Fprintf(&b, "%5s", "|")
	}
	b.WriteByte('\n')

	for i2 := 0; i2 < len2; i2++ {
		if i2%5 == 0 || i2 == len2-1 {
			fmt.Fprintf(&b, "%4d - ", i2)
		} else {
			b.WriteString("       ")
		}
		for i1 := 0; i1 < len1; i1++ {
			ch := string(glyph(grid[i1][i2]))
			if color && term.StdoutMode != term.NoColor {
				ch = ansi.Color(ch, colorFor(grid[i1][i2]))
			}
			b.WriteString(ch)
		}
		if tip1 != "" && i2 == 0 {
			fmt.Fprintf(&b, " - %s\n", tip1)
		} else {
			b.WriteByte('\n')
		}
	}
	if tip2 != "" {
		b.WriteString("       |\n")
		fmt.Fprintf(&b, "     %s\n", tip2)
	}
	return b.String()
}

// Legend is the fixed explanation of diagram glyphs printed alongside
// every rendering.
const Legend = "" +
	"  |,-,+ = rectangles forming current merge frontier\n" +
	"  * = merge done manually\n" +
	"  . = merge done automatically\n" +
	"  # = conflict that is currently blocking progress\n" +
	"  @ = merge was blocked but has been resolved\n" +
	"  ? = no merge recorded\n"

func cssClasses(i1, i2, len1, len2 int, c imerge.DiagramCell) []string {
	var classes []string
	switch c.Kind {
	case imerge.CellUnknown:
		classes = append(classes, "merge_unknown")
	case imerge.CellManual:
		classes = append(classes, "merge_manual")
	case imerge.CellAutomatic:
		classes = append(classes, "merge_automatic")
	case imerge.CellBlocked:
		classes = append(classes, "merge_blocked")
	case imerge.CellUnblocked:
		classes = append(classes, "merge_unblocked")
	}
	if c.Frontier&imerge.FrontierWithin != 0 {
		classes = append(classes, "frontier_within")
	} else {
		classes = append(classes, "frontier_without")
	}
	if c.Frontier&imerge.FrontierRightEdge != 0 {
		classes = append(classes, "frontier_right_edge")
	}
	if c.Frontier&imerge.FrontierBottomEdge != 0 {
		classes = append(classes, "frontier_bottom_edge")
	}
	if c.Frontier&imerge.FrontierWithin == 0 && c.Kind == imerge.CellUnknown {
		classes = append(classes, "merge_skipped")
	}
	if i1 == 0 || i2 == 0 {
		classes = append(classes, "merge_initial")
	}
	if i1 == 0 {
		classes = append(classes, "col_left")
	}
	if i1 == len1-1 {
		classes = append(classes, "col_right")
	}
	if i2 == 0 {
		classes = append(classes, "row_top")
	}
	if i2 == len2-1 {
		classes = append(classes, "row_bottom")
	}
	return classes
}

// RenderHTML writes grid as an HTML <table>, one <td> per cell carrying
// an id (the cell's full oid), the abbreviated oid as its text, and a
// class list mirroring gitimerge.py's write_html map_to_classes.
func RenderHTML(grid [][]imerge.DiagramCell, name string, cssfile string, abbrevLen int) string {
	if cssfile == "" {
		cssfile = "imerge.css"
	}
	if abbrevLen <= 0 {
		abbrevLen = 7
	}
	len1 := len(grid)
	var len2 int
	if len1 > 0 {
		len2 = len(grid[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<html>\n<head>\n<title>imerge: %s</title>\n", name)
	fmt.Fprintf(&b, "<link rel=\"stylesheet\" href=\"%s\" type=\"text/css\" />\n", cssfile)
	b.WriteString("</head>\n<body>\n<table id=\"imerge\">\n")

	b.WriteString("  <tr>\n    <th class=\"indexes\">&nbsp;</td>\n")
	for i1 := 0; i1 < len1; i1++ {
		fmt.Fprintf(&b, "    <th class=\"indexes\">%d-*</td>\n", i1)
	}
	b.WriteString("  </tr>\n")

	for i2 := 0; i2 < len2; i2++ {
		b.WriteString("  <tr>\n")
		fmt.Fprintf(&b, "    <th class=\"indexes\">*-%d</td>\n", i2)
		for i1 := 0; i1 < len1; i1++ {
			c := grid[i1][i2]
			classes := cssClasses(i1, i2, len1, len2, c)
			sha1 := string(c.Oid)
			idAttr := ""
			if sha1 != "" {
				idAttr = fmt.Sprintf(" id=%q", sha1)
			}
			classAttr := ""
			if len(classes) > 0 {
				classAttr = fmt.Sprintf(" class=%q", strings.Join(classes, " "))
			}
			abbrev := sha1
			if len(abbrev) > abbrevLen {
				abbrev = abbrev[:abbrevLen]
			}
			fmt.Fprintf(&b, "    <td%s%s>%s</td>\n", idAttr, classAttr, abbrev)
		}
		b.WriteString("  </tr>\n")
	}
	b.WriteString("</table>\n</body>\n</html>\n")
	return b.String()
}
