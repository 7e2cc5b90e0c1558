package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lingopal/server/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM" // Rachel voice
	defaultChunkSize    = 1024
	defaultOutputFormat = "pcm_16000"
	defaultModelID      = "eleven_multilingual_v2"
	defaultStability    = 0.5
	defaultClarity      = 0.75
)

// ElevenLabsConfig holds configuration for the ElevenLabs adapter. APIKey is
// required; everything else falls back to a sensible default.
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	OutputFormat string
	ChunkSize    int
}

// NewElevenLabsConfigFromEnv builds a config from the environment.
func NewElevenLabsConfigFromEnv() ElevenLabsConfig {
	return ElevenLabsConfig{
		APIKey:     os.Getenv("ELEVEN_LABS_API_KEY"),
		APIBaseURL: os.Getenv("ELEVEN_LABS_API_BASE_URL"),
		VoiceID:    os.Getenv("ELEVEN_LABS_VOICE_ID"),
		ModelID:    os.Getenv("ELEVEN_LABS_MODEL_ID"),
	}
}

// ElevenLabsTTS implements TextToSpeech using the ElevenLabs streaming API.
type ElevenLabsTTS struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	modelID      string
	outputFormat string
	chunkSize    int
	logger       *zap.Logger
}

var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	LanguageCode  string                  `json:"language_code,omitempty"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

// NewElevenLabsTTS creates an ElevenLabs TTS instance.
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("eleven labs API key is required")
	}
	if config.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	voiceID := config.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
	}
	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
	}
	outputFormat := config.OutputFormat
	if outputFormat == "" {
		outputFormat = defaultOutputFormat
	}
	chunkSize := config.ChunkSize
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}

	return &ElevenLabsTTS{
		apiKey:       config.APIKey,
		apiBaseURL:   apiBaseURL,
		voiceID:      voiceID,
		modelID:      modelID,
		outputFormat: outputFormat,
		chunkSize:    chunkSize,
		logger:       logger,
	}, nil
}

// Synthesize converts text to speech, streaming the audio in chunks on the
// returned channel. The request's voice and language override the defaults.
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, req repositories.SpeechRequest) (<-chan []byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = e.voiceID
	}

	payload := elevenLabsRequest{
		Text:         req.Text,
		ModelID:      e.modelID,
		LanguageCode: req.Language,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       defaultStability,
			SimilarityBoost: defaultClarity,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=%s",
		e.apiBaseURL, voiceID, e.outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	accept := "audio/mpeg"
	if strings.HasPrefix(e.outputFormat, "pcm") {
		accept = "audio/pcm"
	}
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	client := &http.Client{Timeout: 60 * time.Second}
	audioChan := make(chan []byte, 10)

	go func() {
		defer close(audioChan)

		resp, err := client.Do(httpReq)
		if err != nil {
			e.logger.Error("Failed to execute TTS request", zap.Error(err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			errorBody, _ := io.ReadAll(resp.Body)
			e.logger.Error("ElevenLabs API returned error",
				zap.Int("statusCode", resp.StatusCode),
				zap.ByteString("response", errorBody))
			return
		}

		buffer := make([]byte, e.chunkSize)
		for {
			n, err := resp.Body.Read(buffer)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buffer[:n])
				select {
				case audioChan <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				e.logger.Error("Failed to read TTS stream", zap.Error(err))
				return
			}
		}
	}()

	return audioChan, nil
}
