package sanitize

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "<b>Ana</b>", want: "Ana"},
		{input: "&lt;script&gt;alert(1)&lt;/script&gt;", want: "alert(1)"},
		{input: "  plain  ", want: "plain"},
		{input: "Tom &amp; Jerry", want: "Tom & Jerry"},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.input); got != tt.want {
			t.Fatalf("StripHTML(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLineCollapsesWhitespace(t *testing.T) {
	if got := Line(" Ana \n  Souza\t"); got != "Ana Souza" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestTextPtr(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatal("nil should stay nil")
	}
	blank := " <br> "
	if TextPtr(&blank) != nil {
		t.Fatal("blank should become nil")
	}
	note := "<i>call</i> after lunch"
	if got := TextPtr(&note); got == nil || *got != "call after lunch" {
		t.Fatalf("unexpected %v", got)
	}
}
