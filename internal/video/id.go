package video

import "strings"

// ID identifies a video within its provider. Echo360 IDs distinguish fully
// resolved videos from placeholders that still need work before a transcript
// can be requested.
type ID interface {
	String() string
	isID()
}

// DeliveryID is a Panopto delivery GUID.
type DeliveryID string

// LessonMedia is a fully resolved Echo360 video.
type LessonMedia struct {
	LessonID string
	MediaID  string
}

// SectionPending is an Echo360 section whose video list has not been fetched yet.
type SectionPending struct {
	SectionID string
}

// Unresolvable is an Echo360 embed whose identifiers are hidden behind a
// cross-origin (usually LTI) frame.
type Unresolvable struct {
	Origin string
}

const (
	sectionPrefix      = "section:"
	unresolvablePrefix = "lti:"
	lessonMediaSep     = "|"
)

func (id DeliveryID) String() string     { return string(id) }
func (id LessonMedia) String() string    { return id.LessonID + lessonMediaSep + id.MediaID }
func (id SectionPending) String() string { return sectionPrefix + id.SectionID }
func (id Unresolvable) String() string   { return unresolvablePrefix + id.Origin }

func (DeliveryID) isID()     {}
func (LessonMedia) isID()    {}
func (SectionPending) isID() {}
func (Unresolvable) isID()   {}

// ParseID decodes the wire form of an ID. Non-Echo360 providers always yield a
// DeliveryID; Echo360 strings are classified by prefix.
func ParseID(provider Provider, s string) ID {
	if provider != ProviderEcho360 {
		return DeliveryID(s)
	}
	switch {
	case strings.HasPrefix(s, sectionPrefix):
		return SectionPending{SectionID: strings.TrimPrefix(s, sectionPrefix)}
	case strings.HasPrefix(s, unresolvablePrefix):
		return Unresolvable{Origin: strings.TrimPrefix(s, unresolvablePrefix)}
	}
	if lesson, media, ok := strings.Cut(s, lessonMediaSep); ok {
		return LessonMedia{LessonID: lesson, MediaID: media}
	}
	// A bare lesson id from the background service
	return LessonMedia{LessonID: s}
}
