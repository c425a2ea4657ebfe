package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kernel/lecturecap/internal/bridge"
	"github.com/kernel/lecturecap/internal/transcripts"
	"github.com/kernel/lecturecap/internal/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transcriptReply = `{"success":true,"transcript":{"plainText":"Welcome to week two.","segments":[
	{"startMs":0,"endMs":1500,"text":"Welcome"},
	{"startMs":1500,"endMs":3000,"text":"to week two."}
],"durationMs":3000}}`

func transcriptPort() *FakePort {
	return &FakePort{SendFunc: func(ctx context.Context, msg bridge.Message) (json.RawMessage, error) {
		return json.RawMessage(transcriptReply), nil
	}}
}

func TestTranscript_Formats(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{format: "", want: []string{"Welcome to week two."}},
		{format: "srt", want: []string{"1\n00:00:00,000 --> 00:00:01,500\nWelcome", "2\n00:00:01,500 --> 00:00:03,000\nto week two."}},
		{format: "json", want: []string{`"plainText": "Welcome to week two."`, `"id": "` + testPanoptoID + `"`}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			buf := captureOutput(t)

			c := TranscriptCmd{
				loader:  staticLoader(t, "https://lms.example.edu/course", panoptoMarkup),
				session: transcripts.NewSession(transcriptPort()),
			}
			err := c.Extract(context.Background(), TranscriptInput{Target: "page", Format: tt.format})

			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestTranscript_UnsupportedFormat(t *testing.T) {
	c := TranscriptCmd{loader: &FakeLoader{}, session: transcripts.NewSession(nil)}
	err := c.Extract(context.Background(), TranscriptInput{Target: "page", Format: "vtt"})
	assert.EqualError(t, err, "unsupported --format value: use one of text, srt, json")
}

func TestTranscript_WritesFile(t *testing.T) {
	buf := captureOutput(t)
	out := filepath.Join(t.TempDir(), "week2.srt")

	c := TranscriptCmd{
		loader:  staticLoader(t, "https://lms.example.edu/course", panoptoMarkup),
		session: transcripts.NewSession(transcriptPort()),
	}
	require.NoError(t, c.Extract(context.Background(), TranscriptInput{Target: "page", Format: "srt", OutputFile: out}))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), "00:00:01,500 --> 00:00:03,000")
	assert.Contains(t, buf.String(), "Saved transcript (0:03, 2 segments)")
}

func TestTranscript_LTIGuidance(t *testing.T) {
	buf := captureOutput(t)

	port := transcriptPort()
	var opened string
	c := TranscriptCmd{
		loader:   staticLoader(t, "https://lms.example.edu/course", `<iframe src="https://echo360.org.au/lti/abc/launch?x=1"></iframe>`),
		session:  transcripts.NewSession(port),
		maxDepth: 3,
		openURL: func(u string) error {
			opened = u
			return nil
		},
	}
	err := c.Extract(context.Background(), TranscriptInput{Target: "page", Open: true})

	assert.ErrorIs(t, err, transcripts.ErrLTIEmbed)
	assert.Equal(t, "https://echo360.org.au/lti/abc/launch?x=1", opened)
	assert.Contains(t, buf.String(), "cross-origin LTI frame")
	assert.Equal(t, 0, port.Calls)
}

func TestTranscript_BackgroundFailure(t *testing.T) {
	captureOutput(t)

	port := &FakePort{SendFunc: func(ctx context.Context, msg bridge.Message) (json.RawMessage, error) {
		return json.RawMessage(`{"data":{"success":false,"error":"Captions are disabled.","aiTranscriptionAvailable":true}}`), nil
	}}
	c := TranscriptCmd{
		loader:  staticLoader(t, "https://lms.example.edu/course", panoptoMarkup),
		session: transcripts.NewSession(port),
	}
	err := c.Extract(context.Background(), TranscriptInput{Target: "page"})
	require.Error(t, err)
	assert.Equal(t, "Captions are disabled. AI transcription is available as a fallback for this video.", err.Error())
}

func TestTranscript_SectionListFailure(t *testing.T) {
	captureOutput(t)

	port := &FakePort{SendFunc: func(ctx context.Context, msg bridge.Message) (json.RawMessage, error) {
		return nil, errors.New("connection refused")
	}}
	c := TranscriptCmd{
		loader: staticLoader(t, "https://lms.example.edu/course",
			`<iframe src="https://echo360.org/section/cccccccc-dddd-eeee-ffff-000000000000/home"></iframe>`),
		session: transcripts.NewSession(port),
	}
	err := c.Extract(context.Background(), TranscriptInput{Target: "page", Format: "json"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load echo360 video list")
	assert.Contains(t, err.Error(), "connection refused")
	assert.NotErrorIs(t, err, transcripts.ErrSectionPending)
	assert.Equal(t, 1, port.Calls)
}

func TestSelectVideo(t *testing.T) {
	videos := []video.Descriptor{
		{ID: video.DeliveryID("a"), Provider: video.ProviderPanopto},
		{ID: video.LessonMedia{LessonID: "L", MediaID: "M"}, Provider: video.ProviderEcho360},
	}
	tests := []struct {
		name    string
		sel     string
		want    string
		wantErr string
	}{
		{name: "by id", sel: "L|M", want: "L|M"},
		{name: "by index", sel: "1", want: "a"},
		{name: "index out of range", sel: "3", wantErr: "video index 3 out of range (1-2)"},
		{name: "unknown id", sel: "zzz", wantErr: `no video with id "zzz" on this page`},
		{name: "ambiguous", sel: "", wantErr: "found 2 videos: pass a video id or index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectVideo(videos, tt.sel)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Key())
		})
	}

	only, err := selectVideo(videos[:1], "")
	require.NoError(t, err)
	assert.Equal(t, "a", only.Key())
}
