package scraper

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips attributes",
			input: `<p class="x" id="y" style="color:red">Hello</p>`,
			want:  `<p>Hello</p>`,
		},
		{
			name:  "empties anchors",
			input: `<p>See <a href="/more" class="link">more details</a> here</p>`,
			want:  `<p>See <a></a> here</p>`,
		},
		{
			name:  "unwraps disallowed tags",
			input: `<div><p>Hello <b>bold</b> <span>world</span></p></div>`,
			want:  `<p>Hello bold world</p>`,
		},
		{
			name:  "drops script content",
			input: `<p>Safe</p><script>alert("x")</script>`,
			want:  `<p>Safe</p>`,
		},
		{
			name:  "drops style content",
			input: `<style>p{color:red}</style><ul><li>One</li><li>Two</li></ul>`,
			want:  `<ul><li>One</li><li>Two</li></ul>`,
		},
		{
			name:  "drops event handlers",
			input: `<p onclick="steal()">Click</p>`,
			want:  `<p>Click</p>`,
		},
		{
			name:  "keeps tables",
			input: `<table class="specs"><tr><td id="k">Weight</td><td>1kg</td></tr></table>`,
			want:  `<table><tr><td>Weight</td><td>1kg</td></tr></table>`,
		},
		{
			name:  "drops comments",
			input: `<p>a<!-- hidden -->b</p>`,
			want:  `<p>ab</p>`,
		},
		{
			name:  "empty",
			input: ``,
			want:  ``,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q)\n got %q\nwant %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		`<div class="description"><p>Great <a href="/x">product</a></p></div>`,
		"\n  <div>\n    <p>Indented</p>\n  </div>\n",
		`<ul><li>One <em>1</em></li><li>Two &amp; more &lt;tags&gt;</li></ul>`,
		`<table><tr><td>A</td></tr></table><p>after</p>`,
		`plain text with <img src="x.jpg"> image`,
		`<p>unclosed <b>bold`,
		`<table><thead><tr><th>Weight</th><th>Size</th></tr></thead><tbody><tr><td>1kg</td><td>L</td></tr></tbody></table>`,
		`<table><caption>Specs</caption><tr><td>A</td></tr></table>`,
		`<div class="specs"><table>
  <caption class="c">Dimensions</caption>
  <tr><th id="h">Width</th><td>10 cm</td></tr>
</table></div>`,
	}

	s := NewSanitizer()
	for _, in := range inputs {
		once := s.Sanitize(in)
		twice := s.Sanitize(once)
		if once != twice {
			t.Errorf("not idempotent for %q:\n once %q\ntwice %q", in, once, twice)
		}
	}
}

func TestSanitize_TableHeadersBecomeCells(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "header row",
			input: `<table><thead><tr><th>Weight</th><th>Size</th></tr></thead><tbody><tr><td>1kg</td><td>L</td></tr></tbody></table>`,
			want:  `<table><tr><td>Weight</td><td>Size</td></tr><tr><td>1kg</td><td>L</td></tr></table>`,
		},
		{
			name:  "caption",
			input: `<table><caption>Specs</caption><tr><td>A</td></tr></table>`,
			want:  `<table><tr><td>Specs</td></tr><tr><td>A</td></tr></table>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q)\n got %q\nwant %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_OnlyAllowedTags(t *testing.T) {
	in := `<section><h2>Title</h2><p>Body <i>it</i></p><img src="a.png"><form><input name="q"></form></section>`
	out := Sanitize(in)

	for _, tag := range []string{"<section", "<h2", "<i>", "<img", "<form", "<input"} {
		if strings.Contains(out, tag) {
			t.Errorf("output %q still contains %s", out, tag)
		}
	}
	if !strings.Contains(out, "Title") || !strings.Contains(out, "<p>Body it</p>") {
		t.Errorf("text content lost: %q", out)
	}
}
