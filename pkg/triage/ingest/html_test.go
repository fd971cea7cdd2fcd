package ingest

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text stays", "plain text stays"},
		{"<div>Router <i>kaputt</i></div>", "Router kaputt"},
		{"<style>p{}</style><p>Hi</p>", "Hi"},
		{"a &lt; b", "a &lt; b"},
		{"<p>a &amp; b</p>", "a & b"},
	}

	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
