// internal/scraper/extractor.go
package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// imageSeparator joins multiple image sources into one field value.
const imageSeparator = ", "

// Extractor pulls a ProductRecord out of a parsed product page using
// precompiled selectors. Every selector applies a first-match policy: only
// the first element in document order is used. Fields whose selector is
// unset or matches nothing are Unavailable.
type Extractor struct {
	title       goquery.Matcher
	image       goquery.Matcher
	description goquery.Matcher
	specs       goquery.Matcher
	sanitizer   *Sanitizer
}

// NewExtractor compiles the non-empty selectors in sel. A nil sanitizer
// selects the default one.
func NewExtractor(sel ProductSelectors, sanitizer *Sanitizer) (*Extractor, error) {
	if sanitizer == nil {
		sanitizer = defaultSanitizer
	}
	e := &Extractor{sanitizer: sanitizer}

	fields := []struct {
		name     string
		selector string
		dst      *goquery.Matcher
	}{
		{"title", sel.Title, &e.title},
		{"image", sel.Image, &e.image},
		{"description", sel.Description, &e.description},
		{"specs", sel.Specs, &e.specs},
	}
	for _, f := range fields {
		if f.selector == "" {
			continue
		}
		m, err := CompileSelector(f.name, f.selector)
		if err != nil {
			return nil, err
		}
		*f.dst = m
	}
	return e, nil
}

// Extract compiles sel and extracts one record from doc.
func Extract(doc *Document, sel ProductSelectors) (ProductRecord, error) {
	e, err := NewExtractor(sel, nil)
	if err != nil {
		return ProductRecord{}, err
	}
	return e.Extract(doc), nil
}

// Extract builds a record from doc. It never fails; missing data is
// reported through Unavailable fields.
func (e *Extractor) Extract(doc *Document) ProductRecord {
	record := NewProductRecord()

	if first := e.first(doc, e.title); first != nil {
		record.Title = strings.TrimSpace(first.Text())
	}
	if first := e.first(doc, e.image); first != nil {
		if srcs := imageSources(first); len(srcs) > 0 {
			record.Image = strings.Join(srcs, imageSeparator)
		}
	}
	if first := e.first(doc, e.description); first != nil {
		record.Description = e.sanitizeSelection(first)
	}
	if first := e.first(doc, e.specs); first != nil {
		record.Specs = e.sanitizeSelection(first)
	}

	return record
}

func (e *Extractor) first(doc *Document, m goquery.Matcher) *goquery.Selection {
	if m == nil || doc == nil {
		return nil
	}
	sel := doc.Select(m)
	if sel.Length() == 0 {
		return nil
	}
	return sel.First()
}

// sanitizeSelection sanitizes the outer HTML of s. An empty result is kept
// as the empty string, which is distinct from Unavailable.
func (e *Extractor) sanitizeSelection(s *goquery.Selection) string {
	raw, err := goquery.OuterHtml(s)
	if err != nil {
		return Unavailable
	}
	return e.sanitizer.Sanitize(raw)
}

// imageSources returns the src of every img beneath s that carries one.
func imageSources(s *goquery.Selection) []string {
	var srcs []string
	s.Find("img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			srcs = append(srcs, src)
		}
	})
	return srcs
}
