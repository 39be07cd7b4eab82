package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"cut with ellipsis", "hello world", 5, "hello..."},
		{"trailing space trimmed", "hello world", 6, "hello..."},
		{"zero max returns as-is", "x", 0, "x"},
		{"cuts on rune boundary", "café éclair", 4, "café..."},
		{"multi-byte runes counted once", "ÉTÉ à Paris", 3, "ÉTÉ..."},
		{"wide runes", "日本語のテキスト", 3, "日本語..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.maxLen)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Truncate(%q, %d) returned invalid UTF-8", tt.in, tt.maxLen)
			}
		})
	}
}

func TestTruncate_LongNonASCII(t *testing.T) {
	in := strings.Repeat("é", 250)
	got := Truncate(in, 200)
	if !utf8.ValidString(got) {
		t.Fatal("invalid UTF-8")
	}
	if n := utf8.RuneCountInString(strings.TrimSuffix(got, "...")); n != 200 {
		t.Errorf("kept %d runes, want 200", n)
	}
}
