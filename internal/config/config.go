package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults for the transcription relay. The audio contract (linear PCM,
// 16 kHz, mono) is fixed by the capture pipeline; everything else is
// overridable through the environment.
const (
	defaultPort            = "5001"
	defaultLanguage        = "en"
	defaultSampleRate      = 16000
	defaultChannels        = 1
	defaultEncoding        = "linear16"
	defaultEndpointMs      = 300
	defaultStopGracePeriod = time.Second
)

// Config is read once at process start and passed read-only into the
// session factory and adapters.
type Config struct {
	Port string

	// Speech recognition
	STTProvider     string // "deepgram" or "google"
	DeepgramAPIKey  string
	DefaultLanguage string
	SampleRate      int
	Channels        int
	Encoding        string
	EndpointMs      int

	// Grace period between signalling end-of-input and releasing the
	// recognizer handle, so trailing final transcripts can arrive.
	StopGracePeriod time.Duration

	// Collaborators
	LLMProvider      string // "openrouter" or "gemini"
	OpenRouterAPIKey string
	GeminiAPIKey     string
	ElevenLabsAPIKey string
}

// Load builds a Config from the environment. Callers are expected to have
// loaded .env (godotenv) beforehand.
func Load() Config {
	return Config{
		Port:             getEnv("PORT", defaultPort),
		STTProvider:      getEnv("STT_PROVIDER", "deepgram"),
		DeepgramAPIKey:   os.Getenv("DEEPGRAM_API_KEY"),
		DefaultLanguage:  getEnv("DEFAULT_LANGUAGE", defaultLanguage),
		SampleRate:       getEnvInt("AUDIO_SAMPLE_RATE", defaultSampleRate),
		Channels:         defaultChannels,
		Encoding:         defaultEncoding,
		EndpointMs:       getEnvInt("STT_ENDPOINT_MS", defaultEndpointMs),
		StopGracePeriod:  getEnvDuration("STOP_GRACE_PERIOD", defaultStopGracePeriod),
		LLMProvider:      getEnv("LLM_PROVIDER", "openrouter"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		ElevenLabsAPIKey: os.Getenv("ELEVEN_LABS_API_KEY"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
