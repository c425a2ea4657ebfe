// Package detect finds lecture-capture videos in a page and resolves the
// Echo360 context needed to list or extract them.
package detect

import (
	"github.com/kernel/lecturecap/internal/page"
	"github.com/kernel/lecturecap/internal/video"
)

// Detector runs the provider detectors over a page.
type Detector struct {
	// MaxIframeDepth bounds nested iframe traversal.
	MaxIframeDepth int
	// Resolvers are consulted in order until one yields an Echo360 origin.
	Resolvers []ContextResolver
}

// Option configures a Detector.
type Option func(*Detector)

// WithMaxIframeDepth overrides page.DefaultMaxIframeDepth.
func WithMaxIframeDepth(depth int) Option {
	return func(d *Detector) {
		if depth >= 0 {
			d.MaxIframeDepth = depth
		}
	}
}

// WithoutHeuristics drops the DOM scraping fallback, leaving only URL-based
// Echo360 resolution.
func WithoutHeuristics() Option {
	return func(d *Detector) {
		d.Resolvers = []ContextResolver{URLResolver{}}
	}
}

// WithResolvers replaces the Echo360 resolver chain.
func WithResolvers(resolvers ...ContextResolver) Option {
	return func(d *Detector) {
		d.Resolvers = resolvers
	}
}

// NewDetector returns a Detector using URL resolution with the DOM heuristics
// as fallback.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{MaxIframeDepth: page.DefaultMaxIframeDepth}
	for _, opt := range opts {
		opt(d)
	}
	if d.Resolvers == nil {
		d.Resolvers = []ContextResolver{URLResolver{}, DOMResolver{MaxDepth: d.MaxIframeDepth}}
	}
	return d
}

// Result is the merged output of every provider detector.
type Result struct {
	Videos      []video.Descriptor `json:"videos"`
	EchoContext *video.EchoContext `json:"echoContext,omitempty"`
}

// All runs the Panopto and Echo360 detectors and concatenates their videos.
func (d *Detector) All(doc *page.Document) Result {
	panopto := d.Panopto(doc)
	echo := d.Echo360(doc)

	videos := make([]video.Descriptor, 0, len(panopto)+len(echo.Videos))
	videos = append(videos, panopto...)
	videos = append(videos, echo.Videos...)

	return Result{Videos: videos, EchoContext: echo.Context}
}

// collector accumulates descriptors, dropping repeated IDs.
type collector struct {
	seen   map[string]struct{}
	videos []video.Descriptor
}

func newCollector() *collector {
	return &collector{seen: make(map[string]struct{})}
}

func (c *collector) has(key string) bool {
	_, ok := c.seen[key]
	return ok
}

func (c *collector) add(v video.Descriptor) bool {
	key := v.Key()
	if key == "" || c.has(key) {
		return false
	}
	c.seen[key] = struct{}{}
	c.videos = append(c.videos, v)
	return true
}
