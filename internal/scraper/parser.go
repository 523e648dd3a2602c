// internal/scraper/parser.go
package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Document is a parsed page. It is read-only after parsing and owned by
// whichever step fetched the page.
type Document struct {
	document *goquery.Document
	url      string
}

// ParseDocument parses HTML content.
func ParseDocument(html string, pageURL string) (*Document, error) {
	return ParseDocumentFromReader(strings.NewReader(html), pageURL)
}

// ParseDocumentFromReader parses HTML from a reader.
func ParseDocumentFromReader(r io.Reader, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{document: doc, url: pageURL}, nil
}

// URL returns the address the document was fetched from.
func (d *Document) URL() string {
	return d.url
}

// Select returns every element matching m, in document order.
func (d *Document) Select(m goquery.Matcher) *goquery.Selection {
	return d.document.FindMatcher(m)
}

// CompileSelector compiles a CSS selector. goquery silently treats an
// invalid selector as matching nothing, so selectors are compiled here
// first to keep syntax errors distinguishable from empty matches.
func CompileSelector(field, selector string) (goquery.Matcher, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, &SelectorSyntaxError{Field: field, Selector: selector, Err: ErrEmptySelector}
	}
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, &SelectorSyntaxError{Field: field, Selector: selector, Err: err}
	}
	return m, nil
}
