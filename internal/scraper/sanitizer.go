package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// AllowedTags is the fixed set of elements that survive sanitization.
var AllowedTags = []string{"p", "ul", "li", "a", "table", "tr", "td"}

// scrubbedAttributes are removed from every element before filtering.
var scrubbedAttributes = []string{"class", "id", "style"}

// Sanitizer reduces an HTML fragment to a safe subset in two stages:
// structural stripping (scrub class/id/style, empty every anchor) followed
// by an allow-list filter that keeps only AllowedTags, with no attributes.
// Disallowed tags are unwrapped and their text kept, except script and
// style whose content is dropped. A Sanitizer is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds the allow-list policy.
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(AllowedTags...)
	// bluemonday drops attribute-less <a> by default; anchors are kept as
	// empty markers here.
	p.AllowNoAttrs().OnElements("a")
	return &Sanitizer{policy: p}
}

var defaultSanitizer = NewSanitizer()

// Sanitize runs the fragment through the default Sanitizer.
func Sanitize(fragment string) string {
	return defaultSanitizer.Sanitize(fragment)
}

// Sanitize applies both stages. The output is stable under re-sanitization.
func (s *Sanitizer) Sanitize(fragment string) string {
	stripped, err := stripStructure(fragment)
	if err != nil {
		// The allow-list alone is still safe; it just keeps anchor labels.
		stripped = fragment
	}
	return s.policy.Sanitize(stripped)
}

// stripStructure parses the fragment in a body context, removes the
// scrubbed attributes everywhere and empties every anchor. Header cells and
// captions are rewritten as plain cells so no text is left loose inside a
// table once the allow-list unwraps them.
func stripStructure(fragment string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", err
	}

	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	doc := goquery.NewDocumentFromNode(root)
	all := doc.Find("*")
	for _, attr := range scrubbedAttributes {
		all.RemoveAttr(attr)
	}
	doc.Find("a").Empty()
	flattenTables(doc)

	return doc.Html()
}

// flattenTables rewrites th as td and each caption as a leading single-cell
// row. A bare th or caption would be unwrapped by the allow-list, and the
// parser foster-parents such text out of the table on the next pass.
func flattenTables(doc *goquery.Document) {
	doc.Find("th").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		n.Data = "td"
		n.DataAtom = atom.Td
	})

	doc.Find("caption").Each(func(_ int, s *goquery.Selection) {
		caption := s.Get(0)
		row := &html.Node{Type: html.ElementNode, Data: "tr", DataAtom: atom.Tr}
		cell := &html.Node{Type: html.ElementNode, Data: "td", DataAtom: atom.Td}
		row.AppendChild(cell)
		for c := caption.FirstChild; c != nil; c = caption.FirstChild {
			caption.RemoveChild(c)
			cell.AppendChild(c)
		}
		caption.Parent.InsertBefore(row, caption)
		caption.Parent.RemoveChild(caption)
	})
}
