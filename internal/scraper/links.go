package scraper

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// LinkSet is an ordered set of link targets. Uniqueness is exact string
// equality; no URL normalization is applied. Order is first-seen document
// order.
type LinkSet struct {
	links []string
	seen  map[string]struct{}
}

// NewLinkSet builds a set from the given values, dropping duplicates.
func NewLinkSet(values ...string) LinkSet {
	s := LinkSet{seen: make(map[string]struct{}, len(values))}
	for _, v := range values {
		s.add(v)
	}
	return s
}

func (s *LinkSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.links = append(s.links, v)
}

// Len returns the number of unique links.
func (s LinkSet) Len() int {
	return len(s.links)
}

// Contains reports whether v is in the set.
func (s LinkSet) Contains(v string) bool {
	_, ok := s.seen[v]
	return ok
}

// Links returns a copy of the links in first-seen order.
func (s LinkSet) Links() []string {
	out := make([]string, len(s.links))
	copy(out, s.links)
	return out
}

// CollectLinks applies selector to doc and returns the href of every
// matched element that has one. Matched elements without href are skipped.
// An empty selector yields an empty set; a malformed one a
// *SelectorSyntaxError.
func CollectLinks(doc *Document, selector string) (LinkSet, error) {
	if selector == "" {
		return NewLinkSet(), nil
	}
	m, err := CompileSelector("link", selector)
	if err != nil {
		return LinkSet{}, err
	}
	return CollectLinksMatching(doc, m), nil
}

// CollectLinksMatching is CollectLinks with a precompiled selector.
func CollectLinksMatching(doc *Document, m goquery.Matcher) LinkSet {
	set := NewLinkSet()
	doc.Select(m).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			set.add(href)
		}
	})
	return set
}

// ResolveLink resolves a collected link against the page it was found on.
// Absolute links are returned unchanged.
func ResolveLink(base, link string) (string, error) {
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", link, err)
	}
	if ref.IsAbs() {
		return link, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	return b.ResolveReference(ref).String(), nil
}
