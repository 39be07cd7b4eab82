package search

import "testing"

func TestHighlight(t *testing.T) {
	brackets := func(s string) string { return "[" + s + "]" }
	tests := []struct {
		name     string
		content  string
		keywords []string
		want     string
	}{
		{"no keywords", "Jazz Night", nil, "Jazz Night"},
		{"case-insensitive", "Jazz Night at the jazz club", []string{"JAZZ"}, "[Jazz] Night at the [jazz] club"},
		{"several keywords", "Coffee and WiFi", []string{"wifi", "coffee"}, "[Coffee] and [WiFi]"},
		{"overlap merged", "bookshop", []string{"book", "okshop"}, "[bookshop]"},
		{"adjacent merged", "abcd", []string{"ab", "cd"}, "[abcd]"},
		{"no match", "Poetry", []string{"jazz"}, "Poetry"},
		{"blank keyword ignored", "Poetry", []string{" "}, "Poetry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Highlight(tt.content, tt.keywords, brackets); got != tt.want {
				t.Errorf("Highlight() = %q, want %q", got, tt.want)
			}
		})
	}
}
