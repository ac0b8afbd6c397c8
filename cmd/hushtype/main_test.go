package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short passes through", in: "hello", max: 10, want: "hello"},
		{name: "newlines flattened", in: "a\nb", max: 10, want: "a b"},
		{name: "long gets ellipsis", in: "abcdefgh", max: 5, want: "abcde…"},
		{name: "multi-byte cut on rune boundary", in: strings.Repeat("é", 10), max: 4, want: "éééé…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8: %q", tt.in, tt.max, got)
			}
		})
	}
}
