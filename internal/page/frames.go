package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Iframe is an iframe element together with the document that contains it.
type Iframe struct {
	Selection *goquery.Selection
	Owner     *Document
	Depth     int
}

// Src returns the effective source URL of the iframe.
func (f Iframe) Src() string {
	return IframeSrc(f.Selection, f.Owner)
}

// Attr returns the trimmed value of the named attribute.
func (f Iframe) Attr(name string) string {
	return strings.TrimSpace(f.Selection.AttrOr(name, ""))
}

// CollectIframes walks doc and every reachable content document, returning all
// iframe elements in document order. Nothing is returned once depth exceeds
// maxDepth; cross-origin frames are listed but not entered.
func CollectIframes(doc *Document, depth, maxDepth int) []Iframe {
	if doc == nil || depth > maxDepth {
		return nil
	}

	var frames []Iframe
	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		frames = append(frames, Iframe{Selection: s, Owner: doc, Depth: depth})

		child, err := doc.ContentDocument(s)
		if err != nil {
			return
		}
		frames = append(frames, CollectIframes(child, depth+1, maxDepth)...)
	})
	return frames
}

// IframeSrc resolves the iframe's src, falling back to data-src for lazily
// loaded players. The result is absolute when the owner URL is known.
func IframeSrc(s *goquery.Selection, owner *Document) string {
	src := strings.TrimSpace(s.AttrOr("src", ""))
	if src == "" || strings.EqualFold(src, "about:blank") {
		src = strings.TrimSpace(s.AttrOr("data-src", ""))
	}
	if src == "" || owner == nil {
		return src
	}
	return owner.Resolve(src)
}
