package markdown

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"heading with id", "# Hello World", []string{`<h1 id="hello-world">Hello World</h1>`}},
		{"emphasis", "some *em* and **strong**", []string{"<em>em</em>", "<strong>strong</strong>"}},
		{"gfm table", "| a | b |\n|---|---|\n| 1 | 2 |", []string{"<table>", "<td>1</td>"}},
		{"strikethrough", "~~gone~~", []string{"<del>gone</del>"}},
		{"raw html passes", "<div>kept</div>", []string{"<div>kept</div>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(tt.in)
			if err != nil {
				t.Fatalf("ToHTML: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("ToHTML(%q) = %q, want it to contain %q", tt.in, got, w)
				}
			}
		})
	}
}

func TestToHTMLHighlightsWithClasses(t *testing.T) {
	got, err := ToHTML("```go\nfunc main() {}\n```")
	if err != nil {
		t.Fatalf("ToHTML: %v", err)
	}
	if !strings.Contains(got, `class="chroma"`) {
		t.Errorf("missing chroma wrapper: %q", got)
	}
	if !strings.Contains(got, `<span class="kd">func</span>`) {
		t.Errorf("keyword not highlighted by class: %q", got)
	}
	if strings.Contains(got, "style=") {
		t.Errorf("inline styles emitted: %q", got)
	}
}

func TestHighlightCSS(t *testing.T) {
	var buf strings.Builder
	if err := HighlightCSS(&buf); err != nil {
		t.Fatalf("HighlightCSS: %v", err)
	}
	if !strings.Contains(buf.String(), ".chroma") || !strings.Contains(buf.String(), ".kd") {
		t.Errorf("stylesheet missing chroma rules: %q", buf.String())
	}
}
