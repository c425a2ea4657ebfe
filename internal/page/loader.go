package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pterm/pterm"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultUserAgent    = "Mozilla/5.0 (compatible; lecturecap/1.0)"
	maxDocumentBytes    = 10 << 20
)

// Loader produces a Document for a target location.
type Loader interface {
	Load(ctx context.Context, target string) (*Document, error)
}

// fetchFunc loads a nested frame document. A nil fetchFunc limits frame
// loading to srcdoc frames.
type fetchFunc func(ctx context.Context, rawURL string) (*Document, error)

// HTTPLoader fetches pages over HTTP and eagerly loads same-origin iframes.
type HTTPLoader struct {
	Client    *http.Client
	UserAgent string
	MaxDepth  int
}

// NewHTTPLoader returns an HTTPLoader with default client settings.
func NewHTTPLoader(maxDepth int) *HTTPLoader {
	return &HTTPLoader{
		Client:   &http.Client{Timeout: defaultFetchTimeout},
		MaxDepth: maxDepth,
	}
}

func (l *HTTPLoader) Load(ctx context.Context, target string) (*Document, error) {
	doc, err := l.fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	attachFrames(ctx, doc, 0, l.MaxDepth, l.fetch)
	return doc, nil
}

func (l *HTTPLoader) fetch(ctx context.Context, rawURL string) (*Document, error) {
	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	ua := l.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	// Redirects change the origin used for same-origin checks.
	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return Parse(finalURL, io.LimitReader(resp.Body, maxDocumentBytes))
}

// FileLoader parses a saved HTML file. BaseURL stands in for the page's
// original location; only srcdoc frames can be attached.
type FileLoader struct {
	BaseURL  string
	MaxDepth int
}

func (l *FileLoader) Load(ctx context.Context, target string) (*Document, error) {
	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", target, err)
	}
	defer f.Close()

	doc, err := Parse(l.BaseURL, f)
	if err != nil {
		return nil, err
	}
	attachFrames(ctx, doc, 0, l.MaxDepth, nil)
	return doc, nil
}

// attachFrames loads the content documents of doc's iframes, recursing until
// children would sit deeper than maxDepth.
func attachFrames(ctx context.Context, doc *Document, depth, maxDepth int, fetch fetchFunc) {
	if depth >= maxDepth {
		return
	}

	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		if ctx.Err() != nil {
			return
		}

		var child *Document
		if srcdoc, ok := s.Attr("srcdoc"); ok {
			// srcdoc frames inherit the parent's origin
			parsed, err := ParseString(doc.URL(), srcdoc)
			if err != nil {
				pterm.Debug.Printf("Skipping unparseable srcdoc frame: %v\n", err)
				return
			}
			child = parsed
		} else {
			src := IframeSrc(s, doc)
			if src == "" || fetch == nil {
				return
			}
			if !isHTTP(src) || !SameOrigin(doc.URL(), src) {
				pterm.Debug.Printf("Skipping cross-origin frame %s\n", src)
				return
			}
			fetched, err := fetch(ctx, src)
			if err != nil {
				pterm.Debug.Printf("Skipping frame %s: %v\n", src, err)
				return
			}
			child = fetched
		}

		if err := doc.AttachFrame(s, child); err != nil {
			pterm.Debug.Printf("Could not attach frame: %v\n", err)
			return
		}
		attachFrames(ctx, child, depth+1, maxDepth, fetch)
	})
}

func isHTTP(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
