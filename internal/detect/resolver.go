package detect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kernel/lecturecap/internal/page"
	"github.com/kernel/lecturecap/internal/patterns"
	"github.com/kernel/lecturecap/internal/video"
)

// ContextResolver recovers Echo360 identifiers from a page. Implementations
// may return a partial context (or nil); the chain merges results field by
// field and stops once an origin is known.
type ContextResolver interface {
	Name() string
	Resolve(doc *page.Document, iframeSrcs []string) *video.EchoContext
}

// resolveChain runs resolvers in order. Each field keeps the first non-empty
// value seen.
func resolveChain(resolvers []ContextResolver, doc *page.Document, iframeSrcs []string) *video.EchoContext {
	var acc video.EchoContext
	for _, r := range resolvers {
		mergeContext(&acc, r.Resolve(doc, iframeSrcs))
		if acc.Found() {
			return &acc
		}
	}
	return nil
}

func mergeContext(dst *video.EchoContext, src *video.EchoContext) {
	if src == nil {
		return
	}
	if dst.EchoOrigin == "" {
		dst.EchoOrigin = src.EchoOrigin
	}
	if dst.SectionID == "" {
		dst.SectionID = src.SectionID
	}
	if dst.LessonID == "" {
		dst.LessonID = src.LessonID
	}
	if dst.MediaID == "" {
		dst.MediaID = src.MediaID
	}
}

// URLResolver reads Echo360 identifiers from the page URL and iframe sources.
type URLResolver struct{}

func (URLResolver) Name() string { return "url" }

func (URLResolver) Resolve(doc *page.Document, iframeSrcs []string) *video.EchoContext {
	pageURL := ""
	if doc != nil {
		pageURL = doc.URL()
	}
	return partialContextFromURLs(append([]string{pageURL}, iframeSrcs...))
}

// DetectEchoContext resolves an Echo360 context from the page URL and iframe
// sources. Each field comes from the first URL that yields it, so origin and
// IDs may come from different sources. It returns nil without an origin.
func DetectEchoContext(pageURL string, iframeSrcs []string) *video.EchoContext {
	ctx := partialContextFromURLs(append([]string{pageURL}, iframeSrcs...))
	if !ctx.Found() {
		return nil
	}
	return ctx
}

func partialContextFromURLs(urls []string) *video.EchoContext {
	ctx := &video.EchoContext{}
	for _, u := range urls {
		if u == "" {
			continue
		}
		if ctx.EchoOrigin == "" {
			ctx.EchoOrigin, _ = patterns.ExtractEchoOrigin(u)
		}
		if ctx.SectionID == "" {
			ctx.SectionID, _ = patterns.ExtractSectionID(u)
		}
		if ctx.LessonID == "" {
			ctx.LessonID, _ = patterns.ExtractLessonID(u)
		}
		if ctx.MediaID == "" {
			ctx.MediaID, _ = patterns.ExtractMediaID(u)
		}
	}
	return ctx
}

// DOMResolver scrapes scripts, iframe allow lists, same-origin frame
// documents, links and data attributes for an Echo360 origin and section.
// It is heuristic and tied to how LMS platforms currently render Echo360
// embeds.
type DOMResolver struct {
	MaxDepth int
}

func (DOMResolver) Name() string { return "dom" }

func (r DOMResolver) Resolve(doc *page.Document, _ []string) *video.EchoContext {
	s := &domScan{}
	s.scan(doc, 0, r.MaxDepth)
	return &s.ctx
}

// DetectEcho360FromDOM runs the DOM heuristics alone. It returns nil when no
// origin could be found.
func DetectEcho360FromDOM(doc *page.Document, maxDepth int) *video.EchoContext {
	ctx := DOMResolver{MaxDepth: maxDepth}.Resolve(doc, nil)
	if !ctx.Found() {
		return nil
	}
	return ctx
}

var sectionAttrs = []string{"data-section-id", "data-sectionid", "data-echo-section"}

type domScan struct {
	ctx video.EchoContext
}

func (s *domScan) origin(origin string, ok bool) {
	if ok && s.ctx.EchoOrigin == "" {
		s.ctx.EchoOrigin = origin
	}
}

func (s *domScan) section(id string, ok bool) {
	if ok && id != "" && s.ctx.SectionID == "" {
		s.ctx.SectionID = id
	}
}

func (s *domScan) done() bool {
	return s.ctx.EchoOrigin != "" && s.ctx.SectionID != ""
}

// originFrom tries a strict URL parse before the loose text scan.
func originFrom(doc *page.Document, ref string) (string, bool) {
	if origin, ok := patterns.ExtractEchoOrigin(doc.Resolve(ref)); ok {
		return origin, true
	}
	return patterns.ExtractEcho360OriginFromString(ref)
}

func (s *domScan) scan(doc *page.Document, depth, maxDepth int) {
	if doc == nil || depth > maxDepth || s.done() {
		return
	}

	doc.Find("script").Each(func(_ int, el *goquery.Selection) {
		if src := strings.TrimSpace(el.AttrOr("src", "")); src != "" && strings.Contains(strings.ToLower(src), "echo360") {
			s.origin(originFrom(doc, src))
			s.section(patterns.ExtractSectionID(src))
		}

		text := el.Text()
		if !strings.Contains(strings.ToLower(text), "echo360") && !strings.Contains(text, "sectionId") {
			return
		}
		s.origin(patterns.ExtractEcho360OriginFromString(text))
		s.section(patterns.ExtractSectionIDFromScript(text))
		s.section(patterns.ExtractSectionID(text))
	})

	doc.Find("iframe[allow]").Each(func(_ int, el *goquery.Selection) {
		s.origin(patterns.ExtractEcho360OriginFromString(el.AttrOr("allow", "")))
	})

	doc.Find("iframe").Each(func(_ int, el *goquery.Selection) {
		child, err := doc.ContentDocument(el)
		if err != nil {
			return
		}
		s.origin(patterns.ExtractEchoOrigin(child.URL()))
		s.section(patterns.ExtractSectionID(child.URL()))
		s.scan(child, depth+1, maxDepth)
	})

	doc.Find("a[href]").Each(func(_ int, el *goquery.Selection) {
		href := el.AttrOr("href", "")
		if !strings.Contains(strings.ToLower(href), "echo360") {
			return
		}
		s.origin(originFrom(doc, href))
		s.section(patterns.ExtractSectionID(href))
	})

	for _, attr := range sectionAttrs {
		doc.Find("[" + attr + "]").Each(func(_ int, el *goquery.Selection) {
			s.section(strings.TrimSpace(el.AttrOr(attr, "")), true)
		})
	}
	doc.Find("[data-echo-origin]").Each(func(_ int, el *goquery.Selection) {
		s.origin(patterns.ExtractEchoOrigin(el.AttrOr("data-echo-origin", "")))
	})
}
