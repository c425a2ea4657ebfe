// Package video defines the descriptors produced by provider detection and the
// transcript payloads returned by the background service.
package video

import (
	"encoding/json"
	"fmt"
	"time"
)

// Provider identifies the lecture-capture platform hosting a video.
type Provider string

const (
	ProviderPanopto Provider = "panopto"
	ProviderEcho360 Provider = "echo360"
	ProviderYouTube Provider = "youtube"
	ProviderUnknown Provider = "unknown"
)

// Descriptor is a video discovered on a page.
type Descriptor struct {
	ID       ID
	Provider Provider
	Title    string
	EmbedURL string

	// Echo360 augmentation, attached when known
	EchoOrigin string
	LessonID   string
	MediaID    string
	SectionID  string
}

// descriptorJSON is the wire shape of a Descriptor.
type descriptorJSON struct {
	ID         string   `json:"id"`
	Provider   Provider `json:"provider"`
	Title      string   `json:"title"`
	EmbedURL   string   `json:"embedUrl"`
	EchoOrigin string   `json:"echoOrigin,omitempty"`
	LessonID   string   `json:"lessonId,omitempty"`
	MediaID    string   `json:"mediaId,omitempty"`
	SectionID  string   `json:"sectionId,omitempty"`
}

// Key returns the wire encoding of the descriptor's ID, or "" if it has none.
func (d Descriptor) Key() string {
	if d.ID == nil {
		return ""
	}
	return d.ID.String()
}

func (d Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(descriptorJSON{
		ID:         d.Key(),
		Provider:   d.Provider,
		Title:      d.Title,
		EmbedURL:   d.EmbedURL,
		EchoOrigin: d.EchoOrigin,
		LessonID:   d.LessonID,
		MediaID:    d.MediaID,
		SectionID:  d.SectionID,
	})
}

func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var raw descriptorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Provider == "" {
		raw.Provider = ProviderUnknown
	}
	*d = Descriptor{
		ID:         ParseID(raw.Provider, raw.ID),
		Provider:   raw.Provider,
		Title:      raw.Title,
		EmbedURL:   raw.EmbedURL,
		EchoOrigin: raw.EchoOrigin,
		LessonID:   raw.LessonID,
		MediaID:    raw.MediaID,
		SectionID:  raw.SectionID,
	}
	// Older background builds send only the composite id.
	if lm, ok := d.ID.(LessonMedia); ok {
		if d.LessonID == "" {
			d.LessonID = lm.LessonID
		}
		if d.MediaID == "" {
			d.MediaID = lm.MediaID
		}
	}
	return nil
}

// EchoContext is the resolved identity of an Echo360 embed. Only EchoOrigin is
// required; the identifiers are filled in by whichever strategy finds them.
type EchoContext struct {
	EchoOrigin string `json:"echoOrigin"`
	SectionID  string `json:"sectionId,omitempty"`
	LessonID   string `json:"lessonId,omitempty"`
	MediaID    string `json:"mediaId,omitempty"`
}

// Found reports whether the context identifies an Echo360 tenant.
func (c *EchoContext) Found() bool {
	return c != nil && c.EchoOrigin != ""
}

// Segment is one timed cue of a transcript.
type Segment struct {
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	Text    string `json:"text"`
}

// TranscriptResult is the transcript produced by the background service.
type TranscriptResult struct {
	PlainText  string    `json:"plainText"`
	Segments   []Segment `json:"segments"`
	DurationMs int64     `json:"durationMs"`
}

// Duration returns the transcript duration, falling back to the end of the
// last segment when the service did not report one.
func (t *TranscriptResult) Duration() time.Duration {
	ms := t.DurationMs
	if ms == 0 && len(t.Segments) > 0 {
		ms = t.Segments[len(t.Segments)-1].EndMs
	}
	return time.Duration(ms) * time.Millisecond
}

// SRT renders the segments as a SubRip subtitle file.
func (t *TranscriptResult) SRT() string {
	var out []byte
	for i, seg := range t.Segments {
		out = fmt.Appendf(out, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(seg.StartMs), srtTimestamp(seg.EndMs), seg.Text)
	}
	return string(out)
}

func srtTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
