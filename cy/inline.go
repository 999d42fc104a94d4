package cy

import (
	"regexp"
	"strings"
)

// Emphasis substitutions, applied in order. Italic must run before kbd so that
// the single-bracket pattern cannot match inside [[...]].
var inlineRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`<<([^<>]+)>>`), "<strong>${1}</strong>"},
	{regexp.MustCompile(`\[\[([^\[\]]+)\]\]`), "<em>${1}</em>"},
	{regexp.MustCompile(`\[([^\[\]]+)\]`), "<kbd>${1}</kbd>"},
	{regexp.MustCompile(`~~([^~]+)~~`), "<del>${1}</del>"},
}

// substituteInline applies the emphasis substitutions to s. The text is not
// escaped.
func substituteInline(s string) string {
	for _, rule := range inlineRules {
		s = rule.re.ReplaceAllString(s, rule.repl)
	}
	return s
}

// renderCodeLine writes a line containing inline code. Segments between
// delimiters alternate between text and code, starting with text; code is
// written verbatim.
func renderCodeLine(sb *strings.Builder, line string) {
	for i, part := range strings.Split(line, codeDelimiter) {
		if i%2 == 0 {
			sb.WriteString(substituteInline(part))
		} else {
			sb.WriteString("<code>")
			sb.WriteString(part)
			sb.WriteString("</code>")
		}
	}
}
