package cy

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#039;")

// EscapeHTML escapes the characters that are special in HTML text and in
// double- or single-quoted attribute values.
func EscapeHTML(s string) string { return htmlEscaper.Replace(s) }
