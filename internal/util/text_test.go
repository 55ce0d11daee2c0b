package util

import "testing"

func TestCleanLabel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain",
			input: "Newton",
			want:  "Newton",
		},
		{
			name:  "surrounding whitespace",
			input: "  Isaac Newton\t",
			want:  "Isaac Newton",
		},
		{
			name:  "line break inside quoted field",
			input: "law of\r\nuniversal   gravitation",
			want:  "law of universal gravitation",
		},
		{
			name:  "null byte",
			input: "gra\x00vity",
			want:  "gravity",
		},
		{
			name:  "cjk untouched",
			input: " 牛顿 ",
			want:  "牛顿",
		},
		{
			name:  "only whitespace",
			input: " \t ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanLabel(tt.input)
			if got != tt.want {
				t.Fatalf("unexpected label: got %q, want %q", got, tt.want)
			}
		})
	}
}
