package strategy

import "testing"

func TestCombinationRoundTrip(t *testing.T) {
	for c := Combination(0); c < NumCombinations; c++ {
		if got := Parse(c.String()); got != c {
			t.Errorf("Parse(%q) = %v, want %v", c.String(), got, c)
		}
	}
}

func TestParseAliases(t *testing.T) {
	tests := []struct {
		label string
		want  Combination
	}{
		{"ce+cm+jn", All},
		{"all", All},
		{" CE ", CE},
		{"BASELINE", None},
		{"none", None},
		{"", None},
		{"garbage", None},
	}
	for _, tt := range tests {
		if got := Parse(tt.label); got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestFlags(t *testing.T) {
	c := FromFlags(true, false, true)
	if !c.HasCE() || c.HasCM() || !c.HasJN() {
		t.Fatalf("FromFlags(true,false,true) = %v", c)
	}
	if c.String() != "CE+JN" {
		t.Errorf("label: got %q", c.String())
	}
	if !c.Enabled(PassCE) || c.Enabled(PassCM) || !c.Enabled(PassJN) {
		t.Errorf("Enabled mismatch for %v", c)
	}
}
