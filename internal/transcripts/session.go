// Package transcripts drives detection, Echo360 list fetching and transcript
// extraction for one page, keeping the user-visible state consistent while
// background requests are in flight.
package transcripts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kernel/lecturecap/internal/bridge"
	"github.com/kernel/lecturecap/internal/detect"
	"github.com/kernel/lecturecap/internal/page"
	"github.com/kernel/lecturecap/internal/patterns"
	"github.com/kernel/lecturecap/internal/video"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
)

// DefaultRequestTimeout bounds a single background round-trip.
const DefaultRequestTimeout = 60 * time.Second

const (
	noVideosMessage       = "No Panopto or Echo360 videos found on this page."
	emptySectionMessage   = "No videos were found in this Echo360 section."
	listFailedMessage     = "Failed to load the Echo360 video list."
	extractFailedMessage  = "Failed to extract the transcript."
	timeoutMessage        = "The background service did not respond in time."
	aiFallbackHint        = " AI transcription is available as a fallback for this video."
	ltiEmbedMessage       = `This Echo360 player is inside a cross-origin LTI frame. Right-click the player, choose "Open frame in new tab", and detect videos from that tab.`
	sectionPendingMessage = "Please wait for the video list to load, then pick a video."
)

var (
	// ErrLTIEmbed is returned for Echo360 players hidden behind a cross-origin frame.
	ErrLTIEmbed = errors.New(`echo360 player is inside a cross-origin LTI frame: use "Open frame in new tab" on the player and detect from that tab`)
	// ErrSectionPending is returned for a section placeholder whose list is still loading.
	ErrSectionPending = errors.New("echo360 section list has not loaded: wait for the video list, then pick a video")
	// ErrStaleResponse is returned when a newer detection superseded the request.
	ErrStaleResponse = errors.New("response superseded by a newer detection")
)

// ExtractionError is a failure reported by the background in its response.
type ExtractionError struct {
	Message                  string
	AITranscriptionAvailable bool
}

func (e *ExtractionError) Error() string {
	msg := lo.Ternary(e.Message != "", e.Message, extractFailedMessage)
	if e.AITranscriptionAvailable {
		msg += aiFallbackHint
	}
	return msg
}

// State is the user-visible state of a session.
type State struct {
	IsVideoListOpen      bool                    `json:"isVideoListOpen"`
	Videos               []video.Descriptor      `json:"videos"`
	IsDetecting          bool                    `json:"isDetecting"`
	IsExtracting         bool                    `json:"isExtracting"`
	ExtractingVideoID    string                  `json:"extractingVideoId,omitempty"`
	Error                string                  `json:"error,omitempty"`
	LastTranscript       *video.TranscriptResult `json:"lastTranscript,omitempty"`
	EchoContext          *video.EchoContext      `json:"echoContext,omitempty"`
	IsFetchingEchoVideos bool                    `json:"isFetchingEchoVideos"`
}

// Session owns the transcript state for one page.
type Session struct {
	detector *detect.Detector
	port     bridge.Port
	timeout  time.Duration

	mu         sync.RWMutex
	state      State
	generation uint64
	// extracting counts in-flight ExtractTranscript calls.
	extracting int

	wg sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithDetector replaces the default detector.
func WithDetector(d *detect.Detector) Option {
	return func(s *Session) {
		if d != nil {
			s.detector = d
		}
	}
}

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSession returns a session that talks to the background through port.
func NewSession(port bridge.Port, opts ...Option) *Session {
	s := &Session{
		detector: detect.NewDetector(),
		port:     port,
		timeout:  DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	st.Videos = append([]video.Descriptor(nil), s.state.Videos...)
	if s.state.EchoContext != nil {
		c := *s.state.EchoContext
		st.EchoContext = &c
	}
	return st
}

// Wait blocks until background list fetches started by DetectVideos finish.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) update(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// begin starts a new generation; responses tagged with older ones are dropped.
func (s *Session) begin(fn func(*State)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	fn(&s.state)
	return s.generation
}

// current returns the latest generation.
func (s *Session) current() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// updateIf applies fn only while gen is the latest generation.
func (s *Session) updateIf(gen uint64, fn func(*State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	fn(&s.state)
	return true
}

// ClearError clears the stored error message.
func (s *Session) ClearError() {
	s.update(func(st *State) { st.Error = "" })
}

func (s *Session) OpenVideoList() {
	s.update(func(st *State) { st.IsVideoListOpen = true })
}

func (s *Session) CloseVideoList() {
	s.update(func(st *State) { st.IsVideoListOpen = false })
}

// DetectVideos scans doc for videos and stores the result. When the page
// resolves to an Echo360 section, the section's video list is fetched in the
// background; call Wait to block until it lands.
func (s *Session) DetectVideos(ctx context.Context, doc *page.Document) detect.Result {
	gen := s.begin(func(st *State) {
		st.IsDetecting = true
		st.IsFetchingEchoVideos = false
		st.Error = ""
	})

	res := s.detector.All(doc)
	pterm.Debug.Printf("Detected %d video(s)\n", len(res.Videos))

	applied := s.updateIf(gen, func(st *State) {
		st.IsDetecting = false
		st.Videos = res.Videos
		st.EchoContext = res.EchoContext
		if len(res.Videos) == 0 {
			st.Error = noVideosMessage
			return
		}
		st.IsVideoListOpen = true
	})
	if !applied {
		return res
	}

	if res.EchoContext != nil && res.EchoContext.SectionID != "" {
		echoCtx := *res.EchoContext
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.fetchEchoVideoList(ctx, gen, &echoCtx); err != nil {
				pterm.Debug.Printf("Echo360 list fetch: %v\n", err)
			}
		}()
	}
	return res
}

// FetchEchoVideoList asks the background for the videos of echoCtx's section
// and replaces the Echo360 entries of the current list with them. It belongs
// to the current detection: a later DetectVideos supersedes it, but it never
// supersedes a detection.
func (s *Session) FetchEchoVideoList(ctx context.Context, echoCtx *video.EchoContext) error {
	return s.fetchEchoVideoList(ctx, s.current(), echoCtx)
}

func (s *Session) fetchEchoVideoList(ctx context.Context, gen uint64, echoCtx *video.EchoContext) error {
	if !echoCtx.Found() {
		return fmt.Errorf("echo360 context has no origin")
	}
	if !s.updateIf(gen, func(st *State) { st.IsFetchingEchoVideos = true }) {
		return ErrStaleResponse
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var resp bridge.EchoVideosResponse
	raw, err := bridge.SendToBackground(ctx, s.port, bridge.FetchEchoVideos(echoCtx))
	if err == nil {
		resp, err = bridge.DecodeEchoVideos(raw)
	}
	if err == nil && !resp.Success {
		err = errors.New(lo.Ternary(resp.Error != "", resp.Error, listFailedMessage))
	}

	fetched := lo.Map(resp.Videos, func(v video.Descriptor, _ int) video.Descriptor {
		v.Provider = video.ProviderEcho360
		if v.EchoOrigin == "" {
			v.EchoOrigin = echoCtx.EchoOrigin
		}
		if v.SectionID == "" {
			v.SectionID = echoCtx.SectionID
		}
		return v
	})

	applied := s.updateIf(gen, func(st *State) {
		st.IsFetchingEchoVideos = false
		if err != nil {
			st.Error = errorMessage(err, listFailedMessage)
			return
		}
		kept := lo.Reject(st.Videos, func(v video.Descriptor, _ int) bool {
			return v.Provider == video.ProviderEcho360
		})
		st.Videos = append(kept, fetched...)
		if len(fetched) == 0 {
			st.Error = emptySectionMessage
		}
	})
	if !applied {
		return ErrStaleResponse
	}
	if err != nil {
		return fmt.Errorf("failed to fetch echo360 videos: %w", err)
	}
	pterm.Debug.Printf("Fetched %d Echo360 video(s)\n", len(fetched))
	return nil
}

// ExtractTranscript requests the transcript of v. Placeholder entries are
// rejected without contacting the background. Every failure is also stored
// in the state's Error.
func (s *Session) ExtractTranscript(ctx context.Context, v video.Descriptor) (*video.TranscriptResult, error) {
	switch v.ID.(type) {
	case video.Unresolvable:
		s.update(func(st *State) { st.Error = ltiEmbedMessage })
		return nil, ErrLTIEmbed
	case video.SectionPending:
		s.update(func(st *State) { st.Error = sectionPendingMessage })
		return nil, ErrSectionPending
	}

	key := v.Key()
	s.update(func(st *State) {
		s.extracting++
		st.IsExtracting = true
		st.ExtractingVideoID = key
		st.Error = ""
	})

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var resp bridge.TranscriptResponse
	raw, err := bridge.SendToBackground(ctx, s.port, bridge.ExtractTranscript(s.extractPayload(v)))
	if err == nil {
		resp, err = bridge.NormalizeTranscriptResponse(raw)
	}
	if err == nil && (!resp.Success || resp.Transcript == nil) {
		err = &ExtractionError{Message: resp.Error, AITranscriptionAvailable: resp.AITranscriptionAvailable}
	}

	s.update(func(st *State) {
		s.extracting--
		st.IsExtracting = s.extracting > 0
		if st.ExtractingVideoID == key {
			st.ExtractingVideoID = ""
		}
		if err != nil {
			st.Error = errorMessage(err, extractFailedMessage)
			return
		}
		st.LastTranscript = resp.Transcript
		st.IsVideoListOpen = false
	})
	if err != nil {
		return nil, err
	}
	return resp.Transcript, nil
}

// extractPayload fills in the Echo360 fields the background needs to locate
// the media.
func (s *Session) extractPayload(v video.Descriptor) video.Descriptor {
	if v.Provider != video.ProviderEcho360 {
		return v
	}

	if lm, ok := v.ID.(video.LessonMedia); ok {
		v.LessonID = lm.LessonID
		v.MediaID = lm.MediaID
	}

	s.mu.RLock()
	echoCtx := s.state.EchoContext
	s.mu.RUnlock()

	if v.EchoOrigin == "" && echoCtx != nil {
		v.EchoOrigin = echoCtx.EchoOrigin
	}
	if v.EchoOrigin == "" {
		v.EchoOrigin, _ = patterns.ExtractEchoOrigin(v.EmbedURL)
	}
	if v.SectionID == "" && echoCtx != nil {
		v.SectionID = echoCtx.SectionID
	}
	return v
}

func errorMessage(err error, fallback string) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
