package repositories

import "context"

// SpeechRequest is one text-to-speech synthesis request.
type SpeechRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	VoiceID  string `json:"voice_id,omitempty"`
}

// TextToSpeech abstracts the speech synthesis provider. The returned channel
// streams audio chunks and is closed when synthesis ends or fails.
type TextToSpeech interface {
	Synthesize(ctx context.Context, req SpeechRequest) (<-chan []byte, error)
}
