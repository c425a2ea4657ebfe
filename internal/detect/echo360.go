package detect

import (
	"fmt"

	"github.com/kernel/lecturecap/internal/page"
	"github.com/kernel/lecturecap/internal/video"
	"github.com/samber/lo"
)

const (
	// SectionPlaceholderTitle marks an entry whose video list must be fetched.
	SectionPlaceholderTitle = "Echo360 section (click to load videos)"
	// LTIPlaceholderTitle marks an embed hidden behind a cross-origin frame.
	LTIPlaceholderTitle = `⚠️ Echo360 player inside an LTI frame: right-click the player and choose "Open frame in new tab"`
	defaultEchoTitle    = "Echo360 video"
)

// Echo360Result is the Echo360 detector output.
type Echo360Result struct {
	Context *video.EchoContext `json:"context,omitempty"`
	Videos  []video.Descriptor `json:"videos"`
}

// Echo360 resolves the page's Echo360 context and turns it into at most one
// descriptor: a resolved video, a section placeholder, or an LTI placeholder.
func (d *Detector) Echo360(doc *page.Document) Echo360Result {
	if doc == nil {
		return Echo360Result{}
	}

	frames := page.CollectIframes(doc, 0, d.MaxIframeDepth)
	srcs := lo.FilterMap(frames, func(f page.Iframe, _ int) (string, bool) {
		src := f.Src()
		return src, src != ""
	})

	ctx := resolveChain(d.Resolvers, doc, srcs)
	if ctx == nil {
		return Echo360Result{}
	}

	return Echo360Result{
		Context: ctx,
		Videos:  []video.Descriptor{echoDescriptor(ctx, doc.Title())},
	}
}

func echoDescriptor(ctx *video.EchoContext, pageTitle string) video.Descriptor {
	v := video.Descriptor{
		Provider:   video.ProviderEcho360,
		EchoOrigin: ctx.EchoOrigin,
		SectionID:  ctx.SectionID,
	}

	switch {
	case ctx.LessonID != "" && ctx.MediaID != "":
		v.ID = video.LessonMedia{LessonID: ctx.LessonID, MediaID: ctx.MediaID}
		v.LessonID = ctx.LessonID
		v.MediaID = ctx.MediaID
		v.Title = lo.Ternary(pageTitle != "", pageTitle, defaultEchoTitle)
		v.EmbedURL = fmt.Sprintf("%s/lesson/%s/media/%s", ctx.EchoOrigin, ctx.LessonID, ctx.MediaID)
	case ctx.SectionID != "":
		v.ID = video.SectionPending{SectionID: ctx.SectionID}
		v.Title = SectionPlaceholderTitle
		v.EmbedURL = fmt.Sprintf("%s/section/%s/home", ctx.EchoOrigin, ctx.SectionID)
	default:
		v.ID = video.Unresolvable{Origin: ctx.EchoOrigin}
		v.Title = LTIPlaceholderTitle
		v.EmbedURL = ctx.EchoOrigin
	}
	return v
}
