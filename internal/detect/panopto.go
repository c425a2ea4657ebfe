package detect

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/kernel/lecturecap/internal/page"
	"github.com/kernel/lecturecap/internal/patterns"
	"github.com/kernel/lecturecap/internal/video"
)

const (
	minLinkTitleLen = 3
	maxLinkTitleLen = 100
)

// Panopto finds Panopto sessions on the page, in order: the page URL itself,
// iframes (including nested same-origin ones), object/embed tags, iframes
// inside panopto-named wrappers, and finally plain links when nothing else
// matched.
func (d *Detector) Panopto(doc *page.Document) []video.Descriptor {
	if doc == nil {
		return nil
	}

	c := newCollector()
	pageTitle := doc.Title()

	add := func(info patterns.PanoptoInfo, title string) {
		if c.has(info.DeliveryID) {
			return
		}
		c.add(video.Descriptor{
			ID:       video.DeliveryID(info.DeliveryID),
			Provider: video.ProviderPanopto,
			Title:    title,
			EmbedURL: panoptoEmbedURL(info),
		})
	}
	titled := func(frameTitle string) string {
		return panoptoTitle(pageTitle, frameTitle, len(c.videos)+1)
	}

	if info, ok := patterns.ExtractPanoptoInfo(doc.URL()); ok {
		add(info, titled(""))
	}

	for _, f := range page.CollectIframes(doc, 0, d.MaxIframeDepth) {
		if info, ok := patterns.ExtractPanoptoInfo(f.Src()); ok {
			add(info, titled(f.Attr("title")))
		}
	}

	doc.Find("object[data], embed[src]").Each(func(_ int, s *goquery.Selection) {
		ref := s.AttrOr("data", "")
		if goquery.NodeName(s) == "embed" {
			ref = s.AttrOr("src", "")
		}
		if !strings.Contains(strings.ToLower(ref), "panopto") {
			return
		}
		if info, ok := patterns.ExtractPanoptoInfo(doc.Resolve(ref)); ok {
			add(info, titled(strings.TrimSpace(s.AttrOr("title", ""))))
		}
	})

	doc.Find("[class], [id]").Each(func(_ int, s *goquery.Selection) {
		marker := strings.ToLower(s.AttrOr("class", "") + " " + s.AttrOr("id", ""))
		if !strings.Contains(marker, "panopto") {
			return
		}
		s.Find("iframe").Each(func(_ int, f *goquery.Selection) {
			if info, ok := patterns.ExtractPanoptoInfo(page.IframeSrc(f, doc)); ok {
				add(info, titled(strings.TrimSpace(f.AttrOr("title", ""))))
			}
		})
	})

	if len(c.videos) == 0 {
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href := doc.Resolve(s.AttrOr("href", ""))
			if !strings.Contains(strings.ToLower(href), "panopto.com") {
				return
			}
			info, ok := patterns.ExtractPanoptoInfo(href)
			if !ok {
				return
			}
			title := strings.Join(strings.Fields(s.Text()), " ")
			if n := utf8.RuneCountInString(title); n < minLinkTitleLen || n > maxLinkTitleLen {
				title = fmt.Sprintf("Panopto video %d", len(c.videos)+1)
			}
			add(info, title)
		})
	}

	return c.videos
}

// panoptoTitle prefers the page title unless it is Panopto's own generic
// title, then the iframe title, then a numbered placeholder.
func panoptoTitle(pageTitle, frameTitle string, n int) string {
	if pageTitle != "" && !strings.Contains(strings.ToLower(pageTitle), "panopto") {
		return pageTitle
	}
	if frameTitle != "" {
		return frameTitle
	}
	return fmt.Sprintf("Panopto video %d", n)
}

func panoptoEmbedURL(info patterns.PanoptoInfo) string {
	return fmt.Sprintf("https://%s/Panopto/Pages/Embed.aspx?id=%s", info.Tenant, info.DeliveryID)
}
