package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kernel/kernel-go-sdk"
	"github.com/kernel/kernel-go-sdk/option"
	"github.com/kernel/lecturecap/internal/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FakePort implements Port for tests.
type FakePort struct {
	SendFunc func(ctx context.Context, msg Message) (json.RawMessage, error)
}

func (f *FakePort) Send(ctx context.Context, msg Message) (json.RawMessage, error) {
	if f.SendFunc != nil {
		return f.SendFunc(ctx, msg)
	}
	return json.RawMessage(`{"success":true}`), nil
}

func TestSendToBackgroundWithoutRuntime(t *testing.T) {
	_, err := SendToBackground(context.Background(), nil, Ping())
	assert.ErrorIs(t, err, ErrRuntimeUnavailable)
}

func TestSendToBackgroundWrapsPortErrors(t *testing.T) {
	boom := errors.New("port closed")
	port := &FakePort{SendFunc: func(ctx context.Context, msg Message) (json.RawMessage, error) {
		return nil, boom
	}}

	_, err := SendToBackground(context.Background(), port, FetchEchoVideos(&video.EchoContext{EchoOrigin: "https://echo360.org"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, TypeFetchEcho360Videos, rt.Type)
}

func TestMessageJSON(t *testing.T) {
	b, err := json.Marshal(FetchEchoVideos(&video.EchoContext{EchoOrigin: "https://echo360.org", SectionID: "S"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FETCH_ECHO360_VIDEOS","context":{"echoOrigin":"https://echo360.org","sectionId":"S"}}`, string(b))

	b, err = json.Marshal(ExtractTranscript(video.Descriptor{ID: video.DeliveryID("abc"), Provider: video.ProviderPanopto, Title: "t", EmbedURL: "u"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"EXTRACT_TRANSCRIPT","video":{"id":"abc","provider":"panopto","title":"t","embedUrl":"u"}}`, string(b))
}

func TestNormalizeTranscriptResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    TranscriptResponse
		wantErr bool
	}{
		{
			name: "flat",
			raw:  `{"success":true,"transcript":{"plainText":"hi","segments":[{"startMs":0,"endMs":10,"text":"hi"}],"durationMs":10}}`,
			want: TranscriptResponse{Success: true, Transcript: &video.TranscriptResult{
				PlainText: "hi", Segments: []video.Segment{{StartMs: 0, EndMs: 10, Text: "hi"}}, DurationMs: 10,
			}},
		},
		{
			name: "nested under data",
			raw:  `{"ok":1,"data":{"success":false,"error":"no captions","aiTranscriptionAvailable":true}}`,
			want: TranscriptResponse{Error: "no captions", AITranscriptionAvailable: true},
		},
		{
			name: "data is not an object",
			raw:  `{"success":true,"data":"ignored","transcript":{"plainText":"x"}}`,
			want: TranscriptResponse{Success: true, Transcript: &video.TranscriptResult{PlainText: "x"}},
		},
		{
			name: "success missing",
			raw:  `{"transcript":{"plainText":"x"}}`,
			want: TranscriptResponse{Transcript: &video.TranscriptResult{PlainText: "x"}},
		},
		{name: "null", raw: `null`},
		{name: "empty", raw: ``},
		{name: "garbage", raw: `not json`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTranscriptResponse(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeEchoVideos(t *testing.T) {
	raw := `{"success":true,"videos":[
		{"id":"L1|M1","provider":"echo360","title":"One"},
		{"id":"section:S1","provider":"echo360","title":"placeholder"},
		{"id":"L2|M2","title":"Two"}
	]}`

	resp, err := DecodeEchoVideos(json.RawMessage(raw))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, resp.Videos, 2)
	assert.Equal(t, video.LessonMedia{LessonID: "L1", MediaID: "M1"}, resp.Videos[0].ID)
	assert.Equal(t, video.LessonMedia{LessonID: "L2", MediaID: "M2"}, resp.Videos[1].ID)
	assert.Equal(t, video.ProviderEcho360, resp.Videos[1].Provider)

	resp, err = DecodeEchoVideos(json.RawMessage(`{"success":false,"error":"forbidden"}`))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "forbidden", resp.Error)
}

func TestPingBackground(t *testing.T) {
	port := &FakePort{SendFunc: func(ctx context.Context, msg Message) (json.RawMessage, error) {
		assert.Equal(t, TypePing, msg.Type)
		return json.RawMessage(`{"success":true,"version":"1.4.0"}`), nil
	}}
	resp, err := PingBackground(context.Background(), port)
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", resp.Version)

	silent := &FakePort{SendFunc: func(ctx context.Context, msg Message) (json.RawMessage, error) {
		return json.RawMessage(`null`), nil
	}}
	_, err = PingBackground(context.Background(), silent)
	assert.Error(t, err)
}

func TestHTTPPortSend(t *testing.T) {
	var gotAuth, gotPath string
	var gotMsg Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotMsg)
		w.Header().Set(VersionHeader, "1.3.1")
		_, _ = w.Write([]byte(`{"success":true,"version":"1.3.1"}`))
	}))
	defer server.Close()

	port := NewHTTPPort(context.Background(), server.URL+"/", "tok-123")
	raw, err := port.Send(context.Background(), Ping())
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"version":"1.3.1"}`, string(raw))
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "/messages", gotPath)
	assert.Equal(t, TypePing, gotMsg.Type)
}

func TestHTTPPortErrors(t *testing.T) {
	tests := []struct {
		name       string
		version    string
		status     int
		wantIs     error
		wantSubstr string
	}{
		{name: "old version", version: "1.1.9", status: http.StatusOK, wantIs: ErrIncompatibleBackground},
		{name: "invalid version", version: "banana", status: http.StatusOK, wantIs: ErrIncompatibleBackground},
		{name: "server error", version: "2.0.0", status: http.StatusBadGateway, wantSubstr: "background returned 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(VersionHeader, tt.version)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("upstream failed"))
			}))
			defer server.Close()

			_, err := NewHTTPPort(context.Background(), server.URL, "").Send(context.Background(), Ping())
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantSubstr != "" {
				assert.Contains(t, err.Error(), tt.wantSubstr)
			}
		})
	}
}

func TestHTTPPortWithoutURL(t *testing.T) {
	_, err := NewHTTPPort(context.Background(), "", "").Send(context.Background(), Ping())
	assert.ErrorIs(t, err, ErrRuntimeUnavailable)
}

// FakePlaywrightService implements remote.PlaywrightService for tests.
type FakePlaywrightService struct {
	ExecuteFunc func(ctx context.Context, id string, body kernel.BrowserPlaywrightExecuteParams, opts ...option.RequestOption) (*kernel.BrowserPlaywrightExecuteResponse, error)
}

func (f *FakePlaywrightService) Execute(ctx context.Context, id string, body kernel.BrowserPlaywrightExecuteParams, opts ...option.RequestOption) (*kernel.BrowserPlaywrightExecuteResponse, error) {
	if f.ExecuteFunc != nil {
		return f.ExecuteFunc(ctx, id, body, opts...)
	}
	return &kernel.BrowserPlaywrightExecuteResponse{Success: false, Error: "not implemented"}, nil
}

func TestKernelPortSend(t *testing.T) {
	tests := []struct {
		name    string
		result  map[string]any
		want    string
		wantIs  error
		wantErr string
	}{
		{
			name:   "response",
			result: map[string]any{"response": map[string]any{"success": true}},
			want:   `{"success":true}`,
		},
		{
			name:   "runtime missing",
			result: map[string]any{"unavailable": true},
			wantIs: ErrRuntimeUnavailable,
		},
		{
			name:    "last error",
			result:  map[string]any{"runtimeError": "Receiving end does not exist."},
			wantErr: "Receiving end does not exist.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCode, gotBrowser string
			fake := &FakePlaywrightService{
				ExecuteFunc: func(ctx context.Context, id string, body kernel.BrowserPlaywrightExecuteParams, opts ...option.RequestOption) (*kernel.BrowserPlaywrightExecuteResponse, error) {
					gotBrowser = id
					gotCode = body.Code
					return &kernel.BrowserPlaywrightExecuteResponse{Success: true, Result: tt.result}, nil
				},
			}
			port := &KernelPort{Playwright: fake, BrowserID: "browser-1", ExtensionID: "abcdef"}
			raw, err := port.Send(context.Background(), Ping())

			assert.Equal(t, "browser-1", gotBrowser)
			assert.Contains(t, gotCode, `"abcdef"`)
			assert.Contains(t, gotCode, `"popup.html"`)
			assert.True(t, strings.Contains(gotCode, `"type":"PING"`))

			switch {
			case tt.wantIs != nil:
				assert.ErrorIs(t, err, tt.wantIs)
			case tt.wantErr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			default:
				require.NoError(t, err)
				assert.JSONEq(t, tt.want, string(raw))
			}
		})
	}
}

func TestKernelPortNotConfigured(t *testing.T) {
	_, err := (&KernelPort{}).Send(context.Background(), Ping())
	assert.ErrorIs(t, err, ErrRuntimeUnavailable)
}
