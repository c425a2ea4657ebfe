// Package patterns holds the URL and hostname matchers used to recognise
// lecture-capture players. Every matcher is pure and reports "no match"
// instead of failing on malformed input.
package patterns

import (
	"net/url"
	"regexp"
	"strings"
)

const uuidPattern = `[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`

var panoptoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^https?://([a-z0-9.-]+\.panopto\.com)(?::\d+)?/Panopto/Pages/Embed\.aspx\?(?:[^#]*&)?id=(` + uuidPattern + `)`),
	regexp.MustCompile(`(?i)^https?://([a-z0-9.-]+\.panopto\.com)(?::\d+)?/Panopto/Pages/Viewer\.aspx\?(?:[^#]*&)?id=(` + uuidPattern + `)`),
}

// PanoptoInfo identifies a Panopto session.
type PanoptoInfo struct {
	DeliveryID string `json:"deliveryId"`
	Tenant     string `json:"tenant"`
}

// ExtractPanoptoInfo matches embed URLs first, then viewer URLs.
func ExtractPanoptoInfo(rawURL string) (PanoptoInfo, bool) {
	for _, re := range panoptoURLPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return PanoptoInfo{DeliveryID: m[2], Tenant: strings.ToLower(m[1])}, true
		}
	}
	return PanoptoInfo{}, false
}

// IsPanoptoHost reports whether rawURL points at a *.panopto.com host.
func IsPanoptoHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "panopto.com" || strings.HasSuffix(host, ".panopto.com")
}
