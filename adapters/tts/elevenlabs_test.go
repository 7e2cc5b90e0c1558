package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/lingopal/server/domain/repositories"
)

func TestNewElevenLabsTTS(t *testing.T) {
	logger := zaptest.NewLogger(t)

	os.Unsetenv("ELEVEN_LABS_API_KEY")
	config := NewElevenLabsConfigFromEnv()
	if _, err := NewElevenLabsTTS(config, logger); err == nil {
		t.Error("Expected error when API key is not set")
	}

	os.Setenv("ELEVEN_LABS_API_KEY", "test-api-key")
	defer os.Unsetenv("ELEVEN_LABS_API_KEY")

	config = NewElevenLabsConfigFromEnv()
	tts, err := NewElevenLabsTTS(config, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if tts.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got %q", tts.apiKey)
	}
	if tts.voiceID != defaultVoiceID {
		t.Errorf("Expected default voice ID %q, got %q", defaultVoiceID, tts.voiceID)
	}
	if tts.outputFormat != defaultOutputFormat {
		t.Errorf("Expected default output format %q, got %q", defaultOutputFormat, tts.outputFormat)
	}
}

func TestElevenLabsTTS_Synthesize_EmptyText(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if _, err := tts.Synthesize(context.Background(), repositories.SpeechRequest{Text: "  "}); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestElevenLabsTTS_Synthesize_StreamsChunks(t *testing.T) {
	logger := zaptest.NewLogger(t)

	audio := bytes.Repeat([]byte{0xAB}, 2500)
	var gotPath string
	var gotReq elevenLabsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Write(audio)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:     "test-api-key",
		APIBaseURL: server.URL,
	}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	ch, err := tts.Synthesize(context.Background(), repositories.SpeechRequest{
		Text:     "Guten Morgen",
		Language: "de",
		VoiceID:  "custom-voice",
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	var got []byte
	for chunk := range ch {
		got = append(got, chunk...)
	}

	if !bytes.Equal(got, audio) {
		t.Errorf("Streamed audio mismatch: got %d bytes, want %d", len(got), len(audio))
	}
	if gotPath != "/text-to-speech/custom-voice/stream" {
		t.Errorf("Request used wrong voice path: %q", gotPath)
	}
	if gotReq.LanguageCode != "de" {
		t.Errorf("Expected language code 'de', got %q", gotReq.LanguageCode)
	}
}

func TestElevenLabsTTS_Synthesize_UpstreamErrorClosesChannel(t *testing.T) {
	logger := zaptest.NewLogger(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:     "bad-key",
		APIBaseURL: server.URL,
	}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	ch, err := tts.Synthesize(context.Background(), repositories.SpeechRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	for range ch {
		t.Error("Expected no audio chunks on upstream error")
	}
}
