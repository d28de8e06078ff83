package token

import "testing"

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := New()
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if len(tok) != Length {
			t.Fatalf("len = %d, want %d", len(tok), Length)
		}
		if !Valid(tok) {
			t.Fatalf("generated token %q fails Valid", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}

func TestValid(t *testing.T) {
	cases := []struct {
		tok  string
		want bool
	}{
		{"ABCDEF123", true},
		{"000000000", true},
		{"abcdef123", false},
		{"ABCDEF12", false},
		{"ABCDEF1234", false},
		{"ABC-EF123", false},
		{"", false},
	}
	for _, c := range cases {
		if got := Valid(c.tok); got != c.want {
			t.Errorf("Valid(%q) = %v, want %v", c.tok, got, c.want)
		}
	}
}
