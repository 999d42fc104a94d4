package convert

import (
	"fmt"

	"cyc/cy"
	"cyc/utils/debug"
)

// structureDump returns a readable breakdown of the source: per kind line
// counts followed by classification of every line. It exists solely for
// inspection in debug reports.
func structureDump(text, src string) string {
	tw := debug.NewTreeWriter()

	lines := cy.Lines(text)
	tw.Line(0, "Source %q: %d lines", src, len(lines))

	counts := cy.Count(text)
	tw.Line(1, "Statistics")
	for kind := cy.Heading3; kind <= cy.Paragraph; kind++ {
		if n := counts[kind]; n > 0 {
			tw.Line(2, "%s: %d", kind, n)
		}
	}

	tw.Line(1, "Lines")
	for i, line := range lines {
		tw.TextBlock(2, fmt.Sprintf("%d %s", i+1, cy.Classify(line)), line)
	}
	return tw.String()
}
