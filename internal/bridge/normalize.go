package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/kernel/lecturecap/internal/video"
	"github.com/samber/lo"
)

// EchoVideosResponse is the reply to FETCH_ECHO360_VIDEOS.
type EchoVideosResponse struct {
	Success bool               `json:"success"`
	Videos  []video.Descriptor `json:"videos"`
	Error   string             `json:"error,omitempty"`
}

// TranscriptResponse is the reply to EXTRACT_TRANSCRIPT.
type TranscriptResponse struct {
	Success                  bool                    `json:"success"`
	Transcript               *video.TranscriptResult `json:"transcript,omitempty"`
	Error                    string                  `json:"error,omitempty"`
	AITranscriptionAvailable bool                    `json:"aiTranscriptionAvailable,omitempty"`
}

// PingResponse is the reply to PING.
type PingResponse struct {
	Success bool   `json:"success"`
	Version string `json:"version,omitempty"`
}

// payload returns the nested "data" object when present, else raw itself.
func payload(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode background response: %w", err)
	}
	if data, ok := envelope["data"]; ok {
		data = bytes.TrimSpace(data)
		if len(data) > 0 && data[0] == '{' {
			return data, nil
		}
	}
	return trimmed, nil
}

// DecodeEchoVideos decodes a FETCH_ECHO360_VIDEOS response. Section
// placeholders in the returned list are dropped.
func DecodeEchoVideos(raw json.RawMessage) (EchoVideosResponse, error) {
	body, err := payload(raw)
	if err != nil || body == nil {
		return EchoVideosResponse{}, err
	}

	var resp EchoVideosResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return EchoVideosResponse{}, fmt.Errorf("failed to decode echo360 video list: %w", err)
	}
	for i, v := range resp.Videos {
		if v.Provider == video.ProviderUnknown {
			resp.Videos[i].Provider = video.ProviderEcho360
			resp.Videos[i].ID = video.ParseID(video.ProviderEcho360, v.Key())
		}
	}
	resp.Videos = lo.Reject(resp.Videos, func(v video.Descriptor, _ int) bool {
		_, pending := v.ID.(video.SectionPending)
		return pending
	})
	return resp, nil
}

// NormalizeTranscriptResponse accepts both the flat reply shape and one
// nested under "data". A reply without a success field counts as a failure.
func NormalizeTranscriptResponse(raw json.RawMessage) (TranscriptResponse, error) {
	body, err := payload(raw)
	if err != nil || body == nil {
		return TranscriptResponse{}, err
	}

	var resp TranscriptResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return TranscriptResponse{}, fmt.Errorf("failed to decode transcript response: %w", err)
	}
	return resp, nil
}

// PingBackground checks that the background answers and returns its version.
func PingBackground(ctx context.Context, port Port) (PingResponse, error) {
	raw, err := SendToBackground(ctx, port, Ping())
	if err != nil {
		return PingResponse{}, err
	}
	body, err := payload(raw)
	if err != nil {
		return PingResponse{}, err
	}
	var resp PingResponse
	if body != nil {
		if err := json.Unmarshal(body, &resp); err != nil {
			return PingResponse{}, fmt.Errorf("failed to decode ping response: %w", err)
		}
	}
	if !resp.Success {
		return resp, fmt.Errorf("background did not acknowledge ping")
	}
	return resp, nil
}
