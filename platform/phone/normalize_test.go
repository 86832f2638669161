package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	n := NewNormalizer("br")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "national mobile", input: "(11) 91234-5678", want: "+5511912345678"},
		{name: "already e164", input: "+5511912345678", want: "+5511912345678"},
		{name: "foreign with country code", input: "+31 6 12345678", want: "+31612345678"},
		{name: "surrounding spaces", input: "  11912345678 ", want: "+5511912345678"},
		{name: "garbage kept trimmed", input: " not a phone ", want: "not a phone"},
		{name: "empty", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.NormalizeE164(tt.input); got != tt.want {
				t.Fatalf("NormalizeE164(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewNormalizerDefaultsRegion(t *testing.T) {
	if got := NewNormalizer("").Region(); got != DefaultRegion {
		t.Fatalf("expected %s, got %s", DefaultRegion, got)
	}
}

func TestIsValid(t *testing.T) {
	n := NewNormalizer("BR")
	if !n.IsValid("11912345678") {
		t.Fatal("expected valid national number")
	}
	if n.IsValid("123") {
		t.Fatal("expected short number to be invalid")
	}
}
