package debug

import "testing"

func TestTreeWriter(t *testing.T) {
	tw := NewTreeWriter()
	if tw.String() != "" {
		t.Error("Expected empty string from new TreeWriter")
	}

	tw.Line(0, "Root %d", 1)
	tw.Line(1, "Child")
	tw.TextBlock(2, "Text", "a \"quoted\"\tvalue")
	tw.TextBlock(2, "Empty", "")

	want := "Root 1\n" +
		"  Child\n" +
		"    Text: \"a \\\"quoted\\\"\\tvalue\"\n" +
		"    Empty: \n"
	if got := tw.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
