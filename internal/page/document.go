// Package page models an HTML document together with the same-origin iframe
// documents a content script could reach from it.
package page

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultMaxIframeDepth bounds how deep nested iframes are followed.
const DefaultMaxIframeDepth = 3

// ErrCrossOrigin is returned when an iframe's content document is not accessible.
var ErrCrossOrigin = errors.New("iframe content is not accessible from this origin")

// Document is a parsed page. Content documents are attached for iframes that
// were same-origin (or srcdoc) when the page was loaded.
type Document struct {
	url    *url.URL
	doc    *goquery.Document
	frames map[*html.Node]*Document
}

// Parse reads an HTML document located at rawURL. rawURL may be empty for
// documents without a known location.
func Parse(rawURL string, r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return New(rawURL, doc)
}

// ParseString is Parse for an in-memory document.
func ParseString(rawURL, markup string) (*Document, error) {
	return Parse(rawURL, strings.NewReader(markup))
}

// New wraps an already parsed goquery document.
func New(rawURL string, doc *goquery.Document) (*Document, error) {
	d := &Document{doc: doc, frames: make(map[*html.Node]*Document)}
	if rawURL != "" {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid document url: %w", err)
		}
		d.url = u
	}
	return d, nil
}

// URL returns the document location, or "" when unknown.
func (d *Document) URL() string {
	if d.url == nil {
		return ""
	}
	return d.url.String()
}

// Origin returns scheme://host of the document, or "" when unknown.
func (d *Document) Origin() string {
	if d.url == nil || d.url.Host == "" {
		return ""
	}
	return d.url.Scheme + "://" + d.url.Host
}

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Find runs a CSS selector against the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Resolve turns ref into an absolute URL relative to the document. Unparseable
// references are returned unchanged.
func (d *Document) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || d.url == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return d.url.ResolveReference(u).String()
}

// AttachFrame records child as the content document of iframe. iframe must be
// an element of d.
func (d *Document) AttachFrame(iframe *goquery.Selection, child *Document) error {
	node := iframe.Get(0)
	if node == nil || node.Type != html.ElementNode || node.Data != "iframe" {
		return fmt.Errorf("selection is not an iframe element")
	}
	if d.doc.FindNodes(node).Length() == 0 {
		return fmt.Errorf("iframe does not belong to this document")
	}
	d.frames[node] = child
	return nil
}

// ContentDocument returns the document loaded inside iframe.
func (d *Document) ContentDocument(iframe *goquery.Selection) (*Document, error) {
	node := iframe.Get(0)
	if node == nil {
		return nil, ErrCrossOrigin
	}
	child, ok := d.frames[node]
	if !ok {
		return nil, ErrCrossOrigin
	}
	return child, nil
}

// SameOrigin reports whether b shares a's scheme and host. Relative and
// about: URLs inherit the parent origin.
func SameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	if ub.Scheme == "about" || (ub.Scheme == "" && ub.Host == "") {
		return true
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) && strings.EqualFold(ua.Host, ub.Host)
}
