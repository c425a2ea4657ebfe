package patterns

import (
	"net/url"
	"regexp"
	"strings"
)

// Known regional Echo360 hosts. IsEcho360Domain also accepts any hostname
// containing "echo360" so unlisted regions are still picked up.
var echo360DomainPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:^|\.)echo360\.org$`),
	regexp.MustCompile(`(?:^|\.)echo360\.org\.au$`),
	regexp.MustCompile(`(?:^|\.)echo360\.org\.uk$`),
	regexp.MustCompile(`(?:^|\.)echo360\.net$`),
	regexp.MustCompile(`(?:^|\.)echo360\.net\.au$`),
	regexp.MustCompile(`(?:^|\.)echo360\.com$`),
	regexp.MustCompile(`(?:^|\.)echo360\.ca$`),
	regexp.MustCompile(`(?:^|\.)echo360\.de$`),
	regexp.MustCompile(`(?:^|\.)echo360\.eu$`),
}

var (
	sectionIDPattern = regexp.MustCompile(`(?i)/section/(` + uuidPattern + `)`)
	lessonIDPattern  = regexp.MustCompile(`(?i)/lessons?/(` + uuidPattern + `)`)
	mediaIDPattern   = regexp.MustCompile(`(?i)/medias?/(` + uuidPattern + `)`)

	echo360OriginInText = regexp.MustCompile(`(?i)https?://[\w.-]*echo360[\w.-]*`)
	sectionIDInScript   = regexp.MustCompile(`(?i)["']?section_?id["']?\s*[:=]\s*["'](` + uuidPattern + `)["']`)
)

// IsEcho360Domain reports whether hostname belongs to an Echo360 tenant.
func IsEcho360Domain(hostname string) bool {
	host := strings.ToLower(hostname)
	if strings.Contains(host, "echo360") {
		return true
	}
	for _, re := range echo360DomainPatterns {
		if re.MatchString(host) {
			return true
		}
	}
	return false
}

// ExtractEchoOrigin returns the scheme://host origin of rawURL when it is an
// Echo360 URL.
func ExtractEchoOrigin(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	if !IsEcho360Domain(u.Hostname()) {
		return "", false
	}
	return u.Scheme + "://" + u.Host, true
}

// ExtractSectionID returns the UUID following /section/.
func ExtractSectionID(s string) (string, bool) {
	return firstGroup(sectionIDPattern, s)
}

// ExtractLessonID returns the UUID following /lesson/ or /lessons/.
func ExtractLessonID(s string) (string, bool) {
	return firstGroup(lessonIDPattern, s)
}

// ExtractMediaID returns the UUID following /media/ or /medias/.
func ExtractMediaID(s string) (string, bool) {
	return firstGroup(mediaIDPattern, s)
}

// ExtractEcho360OriginFromString scans arbitrary text (script bodies, attribute
// values) for the first Echo360 URL and returns its origin.
func ExtractEcho360OriginFromString(s string) (string, bool) {
	m := echo360OriginInText.FindString(s)
	if m == "" {
		return "", false
	}
	m = strings.TrimRight(m, ".-")
	if strings.HasSuffix(strings.ToLower(m), "://") {
		return "", false
	}
	return m, true
}

// ExtractSectionIDFromScript finds a sectionId assignment in script text, e.g.
// `sectionId: "..."` or `"section_id"="..."`.
func ExtractSectionIDFromScript(s string) (string, bool) {
	return firstGroup(sectionIDInScript, s)
}

func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}
