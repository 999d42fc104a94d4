package cy

import "strings"

// tableRow writes one table row. The first row of a table becomes its header.
func (t *translator) tableRow(line string) {
	cells := splitCells(line)
	if !t.table {
		t.sb.WriteString("<table>")
		t.table = true
	}
	if !t.tableHeaderSeen {
		t.sb.WriteString("<thead><tr>")
		for _, cell := range cells {
			t.wrap("th", EscapeHTML(cell))
		}
		t.sb.WriteString("</tr></thead><tbody>")
		t.tableHeaderSeen = true
		return
	}
	t.sb.WriteString("<tr>")
	for _, cell := range cells {
		t.wrap("td", EscapeHTML(cell))
	}
	t.sb.WriteString("</tr>")
}

// splitCells strips the outer pipes of a row and returns its trimmed cells.
func splitCells(line string) []string {
	line = strings.TrimRight(line, " \t")
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	cells := strings.Split(line, "|")
	for i, cell := range cells {
		cells[i] = strings.TrimSpace(cell)
	}
	return cells
}
