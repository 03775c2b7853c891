package utils

import (
	"strings"
	"testing"
)

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "emphasis",
			input:    "Pick **one**",
			contains: []string{"<strong>one</strong>"},
		},
		{
			name:     "script stripped",
			input:    "hello <script>alert(1)</script>",
			contains: []string{"hello"},
			excludes: []string{"<script"},
		},
		{
			name:     "images are lazy",
			input:    "![cat](https://example.com/cat.png)",
			contains: []string{`loading="lazy"`, `referrerpolicy="no-referrer"`},
		},
		{
			name:     "headings flattened to text",
			input:    "# Lunch vote\nWhere to?",
			contains: []string{"Lunch vote", "Where to?"},
			excludes: []string{"<h1"},
		},
		{
			name:     "javascript links dropped",
			input:    "[x](javascript:alert(1))",
			excludes: []string{"javascript:"},
		},
		{
			name:     "external links open safely",
			input:    "[site](https://example.com)",
			contains: []string{`target="_blank"`, "noopener"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := string(RenderMarkdown(tt.input))
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("expected %q in %s", want, out)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(out, bad) {
					t.Errorf("did not expect %q in %s", bad, out)
				}
			}
		})
	}

	if RenderMarkdown("") != "" {
		t.Error("empty input should render empty")
	}
}

func TestDescriptionExcerpt(t *testing.T) {
	tests := []struct {
		name   string
		source string
		max    int
		want   string
	}{
		{"empty", "   ", 10, ""},
		{"markup removed", "Pick **one** of\n\nthe options", 100, "Pick one of the options"},
		{"entities kept readable", "Tom & Jerry", 100, "Tom & Jerry"},
		{"cut on runes", "Café au lait", 5, "Café…"},
		{"exact fit", "short", 5, "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DescriptionExcerpt(tt.source, tt.max); got != tt.want {
				t.Errorf("DescriptionExcerpt(%q, %d) = %q, want %q", tt.source, tt.max, got, tt.want)
			}
		})
	}
}
