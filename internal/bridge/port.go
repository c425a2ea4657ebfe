// Package bridge carries messages from the page side to the background
// service that performs Echo360 listing and transcript extraction.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kernel/lecturecap/internal/video"
)

// MessageType names a background request.
type MessageType string

const (
	TypeFetchEcho360Videos MessageType = "FETCH_ECHO360_VIDEOS"
	TypeExtractTranscript  MessageType = "EXTRACT_TRANSCRIPT"
	TypePing               MessageType = "PING"
)

// ErrRuntimeUnavailable is returned when no messaging runtime is attached.
var ErrRuntimeUnavailable = errors.New("extension messaging runtime is unavailable")

// Message is a request to the background service.
type Message struct {
	Type    MessageType        `json:"type"`
	Context *video.EchoContext `json:"context,omitempty"`
	Video   *video.Descriptor  `json:"video,omitempty"`
}

// FetchEchoVideos asks the background to list the videos of an Echo360 section.
func FetchEchoVideos(ctx *video.EchoContext) Message {
	return Message{Type: TypeFetchEcho360Videos, Context: ctx}
}

// ExtractTranscript asks the background to extract the transcript of v.
func ExtractTranscript(v video.Descriptor) Message {
	return Message{Type: TypeExtractTranscript, Video: &v}
}

// Ping probes the background for liveness and version.
func Ping() Message {
	return Message{Type: TypePing}
}

// Port is the messaging capability used to reach the background service.
type Port interface {
	Send(ctx context.Context, msg Message) (json.RawMessage, error)
}

// RuntimeError reports a failure of the messaging runtime itself, as opposed
// to a failure reported by the background in its response.
type RuntimeError struct {
	Type MessageType
	Err  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Type, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// SendToBackground sends msg over port and returns the raw response.
func SendToBackground(ctx context.Context, port Port, msg Message) (json.RawMessage, error) {
	if port == nil {
		return nil, ErrRuntimeUnavailable
	}
	raw, err := port.Send(ctx, msg)
	if err != nil {
		return nil, &RuntimeError{Type: msg.Type, Err: err}
	}
	return raw, nil
}
