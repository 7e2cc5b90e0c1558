package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// Client to server control message types.
const (
	ControlStart = "start"
	ControlAudio = "audio"
	ControlStop  = "stop"
)

// Server to client event types.
const (
	EventStatus     = "status"
	EventTranscript = "transcript"
	EventError      = "error"
)

// Status message payloads.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// ControlMessage is a single client to server message on the transcription
// channel. Language is set on start, Audio carries base64 PCM on audio.
type ControlMessage struct {
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
	Audio    string `json:"audio,omitempty"`
}

// ParseControlMessage decodes and validates one inbound message.
func ParseControlMessage(data []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ControlMessage{}, fmt.Errorf("malformed message: %w", err)
	}
	switch msg.Type {
	case ControlStart, ControlStop:
	case ControlAudio:
		if msg.Audio == "" {
			return ControlMessage{}, fmt.Errorf("audio message missing audio payload")
		}
	case "":
		return ControlMessage{}, fmt.Errorf("message missing type field")
	default:
		return ControlMessage{}, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return msg, nil
}

// TranscriptAlternative is one recognition hypothesis.
type TranscriptAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence,omitempty"`
}

// TranscriptChannel wraps the alternatives list the way the recognition
// provider shapes it, which is the shape clients consume.
type TranscriptChannel struct {
	Alternatives []TranscriptAlternative `json:"alternatives"`
}

// TranscriptData is the transcript event payload. Clients read
// channel.alternatives[0].transcript and is_final.
type TranscriptData struct {
	Channel TranscriptChannel `json:"channel"`
	IsFinal bool              `json:"is_final"`
}

// ServerMessage is a single server to client event.
type ServerMessage struct {
	Type      string          `json:"type"`
	Message   string          `json:"message,omitempty"`
	Details   string          `json:"details,omitempty"`
	Data      *TranscriptData `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// NewStatusMessage builds a status event ("connected"/"disconnected").
func NewStatusMessage(status string) ServerMessage {
	return ServerMessage{
		Type:      EventStatus,
		Message:   status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// NewTranscriptMessage builds a transcript event preserving finality.
func NewTranscriptMessage(text string, isFinal bool) ServerMessage {
	return ServerMessage{
		Type: EventTranscript,
		Data: &TranscriptData{
			Channel: TranscriptChannel{
				Alternatives: []TranscriptAlternative{{Transcript: text}},
			},
			IsFinal: isFinal,
		},
	}
}

// NewErrorMessage builds an error event. Details is optional context for
// the client; it never carries credentials or internal state.
func NewErrorMessage(message, details string) ServerMessage {
	return ServerMessage{
		Type:    EventError,
		Message: message,
		Details: details,
	}
}
