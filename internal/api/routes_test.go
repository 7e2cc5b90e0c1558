package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lingopal/server/adapters/stt"
	"github.com/lingopal/server/domain/repositories"
	"github.com/lingopal/server/internal/config"
	"github.com/lingopal/server/internal/websocket"
)

type stubFeedback struct {
	lastMessage string
	lastModel   string
	reply       string
	err         error
}

func (s *stubFeedback) Complete(ctx context.Context, message string, model string) (string, error) {
	s.lastMessage = message
	s.lastModel = model
	return s.reply, s.err
}

type stubSpeech struct {
	chunks [][]byte
}

func (s *stubSpeech) Synthesize(ctx context.Context, req repositories.SpeechRequest) (<-chan []byte, error) {
	ch := make(chan []byte, len(s.chunks))
	for _, c := range s.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func newTestServer(t *testing.T, feedback repositories.FeedbackModel, speech repositories.TextToSpeech) *httptest.Server {
	t.Helper()

	logger := zap.NewNop()
	hub := websocket.NewHub(stt.NewFakeRecognizer(), config.Config{DefaultLanguage: "en"}, logger)
	go hub.Run()

	e := echo.New()
	InitRoutes(e, hub, feedback, speech, logger)

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return server
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, nil, nil)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestGetPrompt(t *testing.T) {
	server := newTestServer(t, nil, nil)

	resp, err := http.Get(server.URL + "/api/v1/prompt?language=es")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body PromptResponse
	json.NewDecoder(resp.Body).Decode(&body)

	if body.Language != "es" {
		t.Errorf("language = %q, want es", body.Language)
	}
	if body.Prompt == "" {
		t.Error("prompt is empty")
	}
}

func TestGetPrompt_UnknownLanguageFallsBack(t *testing.T) {
	server := newTestServer(t, nil, nil)

	resp, err := http.Get(server.URL + "/api/v1/prompt?language=xx")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body PromptResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Language != "en" {
		t.Errorf("expected fallback to en, got %q", body.Language)
	}
}

func TestPostFeedback(t *testing.T) {
	stub := &stubFeedback{reply: "Well done."}
	server := newTestServer(t, stub, nil)

	resp, err := http.Post(server.URL+"/api/v1/feedback", "application/json",
		strings.NewReader(`{"message":"I goed to school","model":"test-model"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body FeedbackResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Content != "Well done." {
		t.Errorf("content = %q", body.Content)
	}
	if stub.lastMessage != "I goed to school" || stub.lastModel != "test-model" {
		t.Errorf("collaborator got message=%q model=%q", stub.lastMessage, stub.lastModel)
	}
}

func TestPostFeedback_EmptyMessage(t *testing.T) {
	server := newTestServer(t, &stubFeedback{}, nil)

	resp, err := http.Post(server.URL+"/api/v1/feedback", "application/json",
		strings.NewReader(`{"message":"  "}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPostFeedback_NotConfigured(t *testing.T) {
	server := newTestServer(t, nil, nil)

	resp, err := http.Post(server.URL+"/api/v1/feedback", "application/json",
		strings.NewReader(`{"message":"hello"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestPostSpeech_StreamsAudio(t *testing.T) {
	speech := &stubSpeech{chunks: [][]byte{{0x01, 0x02}, {0x03}}}
	server := newTestServer(t, nil, speech)

	resp, err := http.Post(server.URL+"/api/v1/speech", "application/json",
		strings.NewReader(`{"text":"hello","language":"en"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/pcm" {
		t.Errorf("content type = %q, want audio/pcm", ct)
	}

	var got []byte
	buf := make([]byte, 16)
	for {
		n, err := resp.Body.Read(buf)
		got = append(got, buf[:n]...)
		if err != nil {
			break
		}
	}
	if string(got) != string([]byte{0x01, 0x02, 0x03}) {
		t.Errorf("streamed bytes = %v", got)
	}
}

func TestPostSpeech_EmptyText(t *testing.T) {
	server := newTestServer(t, nil, &stubSpeech{})

	resp, err := http.Post(server.URL+"/api/v1/speech", "application/json",
		strings.NewReader(`{"text":""}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
