// internal/scraper/extractor_test.go
package scraper

import (
	"errors"
	"testing"
)

const productHTML = `<html><body>
<h1 class="title">  Widget  </h1>
<h1 class="title">Second title</h1>
<div class="gallery">
  <img src="x.jpg" alt="front">
  <img alt="no source">
  <span><img src="y.jpg"></span>
</div>
<div class="gallery"><img src="z.jpg"></div>
<div class="description" style="color:red"><p class="lead">Great <a href="/x">product</a></p><script>alert(1)</script></div>
<div class="specs"><table class="t"><tr><td>Weight</td><td>1kg</td></tr></table></div>
<div class="empty"><span class="x"></span></div>
</body></html>`

func mustParse(t *testing.T, html string) *Document {
	t.Helper()
	doc, err := ParseDocument(html, "https://shop.example.com/p/1")
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	return doc
}

func TestExtract_AllFields(t *testing.T) {
	doc := mustParse(t, productHTML)

	record, err := Extract(doc, ProductSelectors{
		Title:       ".title",
		Image:       ".gallery",
		Description: ".description",
		Specs:       ".specs",
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if record.Title != "Widget" {
		t.Errorf("expected trimmed first title, got %q", record.Title)
	}
	if record.Image != "x.jpg, y.jpg" {
		t.Errorf("expected images of first gallery only, got %q", record.Image)
	}
	if record.Description != "<p>Great <a></a></p>" {
		t.Errorf("unexpected description %q", record.Description)
	}
	if record.Specs != "<table><tr><td>Weight</td><td>1kg</td></tr></table>" {
		t.Errorf("unexpected specs %q", record.Specs)
	}
}

func TestExtract_UnsetAndMissing(t *testing.T) {
	doc := mustParse(t, productHTML)

	record, err := Extract(doc, ProductSelectors{
		Title: ".missing",
		Image: ".description",
		Specs: ".specs",
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if record.Title != Unavailable {
		t.Errorf("no match should be Unavailable, got %q", record.Title)
	}
	if record.Image != Unavailable {
		t.Errorf("match without images should be Unavailable, got %q", record.Image)
	}
	if record.Description != Unavailable {
		t.Errorf("unset selector should be Unavailable, got %q", record.Description)
	}
	if record.Specs == Unavailable {
		t.Error("specs should have been extracted")
	}
}

func TestExtract_EmptySanitizedIsNotUnavailable(t *testing.T) {
	doc := mustParse(t, productHTML)

	record, err := Extract(doc, ProductSelectors{Description: ".empty"})
	if err != nil {
		t.Fatal(err)
	}
	if record.Description != "" {
		t.Errorf("expected empty description, got %q", record.Description)
	}
}

func TestExtract_InvalidSelector(t *testing.T) {
	doc := mustParse(t, productHTML)

	_, err := Extract(doc, ProductSelectors{Title: "h1", Specs: "div[["})
	var syntaxErr *SelectorSyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("expected SelectorSyntaxError, got %v", err)
	}
	if syntaxErr.Field != "specs" {
		t.Errorf("expected specs field, got %q", syntaxErr.Field)
	}
}

func TestExtractor_Reuse(t *testing.T) {
	e, err := NewExtractor(ProductSelectors{Title: "h1"}, NewSanitizer())
	if err != nil {
		t.Fatal(err)
	}

	pages := map[string]string{
		"<h1>One</h1>":             "One",
		"<h1> Two <b>x</b> </h1>":  "Two x",
		"<p>no heading</p>":        Unavailable,
		"<h1></h1><h1>second</h1>": "",
	}
	for html, want := range pages {
		got := e.Extract(mustParse(t, html)).Title
		if got != want {
			t.Errorf("Extract(%q).Title = %q, want %q", html, got, want)
		}
	}
}
