// Package cy translates CY markup into HTML.
//
// CY markup is line oriented: every line is classified on its own (see
// [Classify]) and turned into an HTML fragment. The only state carried from
// one line to the next is whether a list or a table is open, so that
// consecutive items end up in a single <ul>, <ol> or <table>.
//
// Translation never fails. Constructs that are malformed degrade to empty or
// literal text.
package cy

import (
	"strings"
)

type listKind int

const (
	listNone listKind = iota
	listUnordered
	listOrdered
)

var listTags = []string{
	listUnordered: "ul",
	listOrdered:   "ol",
}

// translator holds the state of a single Translate call.
type translator struct {
	sb strings.Builder

	list            listKind
	table           bool
	tableHeaderSeen bool
}

// Translate converts CY markup text into HTML.
func Translate(text string) string {
	var t translator
	for _, line := range splitLines(text) {
		t.line(line)
	}
	t.finish()
	return t.sb.String()
}

// Lines splits text into lines the way Translate does.
func Lines(text string) []string {
	return splitLines(text)
}

// splitLines splits text on newlines. A trailing newline terminates the last
// line rather than starting an empty one, and a carriage return at the end of a
// line is dropped, so CRLF input never leaks \r into output and translates to
// the same bytes as LF input.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func (t *translator) line(line string) {
	kind := Classify(line)
	if t.table && kind != TableRow {
		t.closeTable()
	}

	switch kind {
	case Heading3:
		t.wrap("h3", EscapeHTML(line[len("### "):]))
	case Heading2:
		t.wrap("h2", EscapeHTML(line[len("## "):]))
	case Heading1:
		t.wrap("h1", EscapeHTML(line[len("# "):]))
	case Checkbox:
		t.sb.WriteString(`<label><input type="checkbox"`)
		if strings.HasPrefix(line, checkedPrefix) {
			t.sb.WriteString(" checked")
		}
		t.sb.WriteString("> ")
		t.sb.WriteString(EscapeHTML(line[len(checkedPrefix):]))
		t.sb.WriteString("</label><br>")
	case BulletItem:
		t.openList(listUnordered)
		t.wrap("li", EscapeHTML(line[len("* "):]))
	case OrderedItem:
		t.openList(listOrdered)
		t.wrap("li", EscapeHTML(line[len("1. "):]))
	case Blank:
		t.closeList()
		t.sb.WriteString("<br>")
	case Blockquote:
		t.wrap("blockquote", EscapeHTML(line[len(">> "):]))
	case Link:
		text := between(line, '{', '}')
		url := between(line, '(', ')')
		t.sb.WriteString(`<a href="`)
		t.sb.WriteString(EscapeHTML(url))
		t.sb.WriteString(`">`)
		t.sb.WriteString(EscapeHTML(text))
		t.sb.WriteString("</a>")
	case Image:
		alt := between(line, '[', ']')
		url := between(line, '{', '}')
		t.sb.WriteString(`<img src="`)
		t.sb.WriteString(EscapeHTML(url))
		t.sb.WriteString(`" alt="`)
		t.sb.WriteString(EscapeHTML(alt))
		t.sb.WriteString(`">`)
	case Rule:
		t.sb.WriteString("<hr>")
	case TableRow:
		t.tableRow(line)
	case CodeLine:
		renderCodeLine(&t.sb, line)
	default:
		// Paragraph text is not escaped, only substituted.
		t.wrap("p", substituteInline(line))
	}
}

func (t *translator) wrap(tag, content string) {
	t.sb.WriteString("<" + tag + ">")
	t.sb.WriteString(content)
	t.sb.WriteString("</" + tag + ">")
}

// openList opens a list of the given kind unless one is already open. An open
// list is reused regardless of its kind.
func (t *translator) openList(kind listKind) {
	if t.list != listNone {
		return
	}
	t.list = kind
	t.sb.WriteString("<" + listTags[kind] + ">")
}

func (t *translator) closeList() {
	if t.list == listNone {
		return
	}
	t.sb.WriteString("</" + listTags[t.list] + ">")
	t.list = listNone
}

func (t *translator) closeTable() {
	t.sb.WriteString("</tbody></table>")
	t.table = false
	t.tableHeaderSeen = false
}

// finish closes whatever is still open. A table can only be open inside a list
// that was opened before it, so the table is closed first.
func (t *translator) finish() {
	if t.table {
		t.closeTable()
	}
	t.closeList()
}

// between returns the text between the first occurrence of opener and the
// first occurrence of closer. It returns an empty string when either is missing
// or closer comes before opener.
func between(s string, opener, closer byte) string {
	i := strings.IndexByte(s, opener)
	j := strings.IndexByte(s, closer)
	if i < 0 || j < 0 || j <= i {
		return ""
	}
	return s[i+1 : j]
}
