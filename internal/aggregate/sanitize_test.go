// ABOUTME: Tests for the single-byte text sanitizer.
// ABOUTME: Checks substitution counts for Latin-1, non-Latin-1 and invalid input.
package aggregate

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		subst int
	}{
		{"ascii", "Weight: 72.4kg", "Weight: 72.4kg", 0},
		{"latin1", "Körperwasser: 55%", "Körperwasser: 55%", 0},
		{"cjk", "体重", "??", 2},
		{"emoji", "run 🏃", "run ?", 1},
		{"euro sign", "cost €5", "cost ?5", 1},
		{"invalid utf8", "a\xffb", "a?b", 1},
		{"empty", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n := Sanitize(tt.in)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if n != tt.subst {
				t.Errorf("Sanitize(%q) substitutions = %d, want %d", tt.in, n, tt.subst)
			}
		})
	}
}
