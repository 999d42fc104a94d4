package cy

import (
	"strings"
)

// LineKind is the kind of a single line of CY markup.
type LineKind int

// Line kinds, in the order in which Classify tries them.
const (
	Heading3 LineKind = iota
	Heading2
	Heading1
	Checkbox
	BulletItem
	OrderedItem
	Blank
	Blockquote
	Link
	Image
	Rule
	TableRow
	CodeLine
	Paragraph
)

var kindNames = []string{
	Heading3:    "Heading3",
	Heading2:    "Heading2",
	Heading1:    "Heading1",
	Checkbox:    "Checkbox",
	BulletItem:  "BulletItem",
	OrderedItem: "OrderedItem",
	Blank:       "Blank",
	Blockquote:  "Blockquote",
	Link:        "Link",
	Image:       "Image",
	Rule:        "Rule",
	TableRow:    "TableRow",
	CodeLine:    "CodeLine",
	Paragraph:   "Paragraph",
}

func (k LineKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "LineKind(?)"
	}
	return kindNames[k]
}

const (
	checkedPrefix   = "* [x] "
	uncheckedPrefix = "* [ ] "
	codeDelimiter   = "``"
)

// Classify returns the kind of a line. The first matching rule wins.
func Classify(line string) LineKind {
	switch {
	case strings.HasPrefix(line, "### "):
		return Heading3
	case strings.HasPrefix(line, "## "):
		return Heading2
	case strings.HasPrefix(line, "# "):
		return Heading1
	case strings.HasPrefix(line, uncheckedPrefix), strings.HasPrefix(line, checkedPrefix):
		return Checkbox
	case strings.HasPrefix(line, "* "):
		return BulletItem
	case strings.HasPrefix(line, "1. "):
		return OrderedItem
	case strings.TrimSpace(line) == "":
		return Blank
	case strings.HasPrefix(line, ">> "):
		return Blockquote
	case strings.HasPrefix(line, "{"):
		return Link
	case strings.HasPrefix(line, "!"):
		return Image
	case strings.HasPrefix(line, "---"):
		return Rule
	case strings.HasPrefix(line, "|"):
		return TableRow
	case strings.Contains(line, codeDelimiter):
		return CodeLine
	default:
		return Paragraph
	}
}

// Count returns the number of lines of each kind in text. Lines are split the
// same way Translate splits them.
func Count(text string) map[LineKind]int {
	counts := make(map[LineKind]int)
	for _, line := range splitLines(text) {
		counts[Classify(line)]++
	}
	return counts
}

// Headings returns the text of all heading lines of a document in order, with
// the heading markers removed.
func Headings(text string) []string {
	var headings []string
	for _, line := range splitLines(text) {
		switch Classify(line) {
		case Heading3:
			headings = append(headings, line[len("### "):])
		case Heading2:
			headings = append(headings, line[len("## "):])
		case Heading1:
			headings = append(headings, line[len("# "):])
		}
	}
	return headings
}
