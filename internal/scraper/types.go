// internal/scraper/types.go
package scraper

import (
	"errors"
	"fmt"
	"time"
)

// Unavailable is the value of any record field whose selector is unset or
// matched nothing.
const Unavailable = "Unavailable"

// Common errors
var (
	ErrEmptySelector = errors.New("selector cannot be empty")
	ErrEmptyURL      = errors.New("url cannot be empty")
)

// ProductRecord holds the four fields extracted from one product page.
type ProductRecord struct {
	Title       string `json:"title" yaml:"title" bson:"title"`
	Image       string `json:"img" yaml:"img" bson:"img"`
	Description string `json:"body" yaml:"body" bson:"body"`
	Specs       string `json:"char" yaml:"char" bson:"char"`
}

// NewProductRecord returns a record with every field set to Unavailable.
func NewProductRecord() ProductRecord {
	return ProductRecord{
		Title:       Unavailable,
		Image:       Unavailable,
		Description: Unavailable,
		Specs:       Unavailable,
	}
}

// Columns returns the field values in export column order.
func (r ProductRecord) Columns() []string {
	return []string{r.Title, r.Image, r.Description, r.Specs}
}

// ProductSelectors are the four per-field selectors used by Extract.
// An empty selector disables its field.
type ProductSelectors struct {
	Title       string
	Image       string
	Description string
	Specs       string
}

// Page is the raw result of a successful fetch.
type Page struct {
	URL         string        `json:"url"`
	StatusCode  int           `json:"status_code"`
	ContentType string        `json:"content_type,omitempty"`
	Body        string        `json:"-"`
	Duration    time.Duration `json:"duration"`
}

// FetchError is returned for any network, timeout, protocol or non-2xx
// failure. It always carries the URL that was requested.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SelectorSyntaxError reports a selector string that cannot be compiled.
// It is distinct from a selector that compiles but matches nothing.
type SelectorSyntaxError struct {
	Field    string
	Selector string
	Err      error
}

func (e *SelectorSyntaxError) Error() string {
	return fmt.Sprintf("invalid %s selector %q: %v", e.Field, e.Selector, e.Err)
}

func (e *SelectorSyntaxError) Unwrap() error { return e.Err }
