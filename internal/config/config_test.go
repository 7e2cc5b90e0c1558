package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "STT_PROVIDER", "DEFAULT_LANGUAGE", "AUDIO_SAMPLE_RATE",
		"STT_ENDPOINT_MS", "STOP_GRACE_PERIOD",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "5001" {
		t.Errorf("Port = %q, want 5001", cfg.Port)
	}
	if cfg.STTProvider != "deepgram" {
		t.Errorf("STTProvider = %q, want deepgram", cfg.STTProvider)
	}
	if cfg.DefaultLanguage != "en" {
		t.Errorf("DefaultLanguage = %q, want en", cfg.DefaultLanguage)
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", cfg.SampleRate)
	}
	if cfg.Channels != 1 {
		t.Errorf("Channels = %d, want 1", cfg.Channels)
	}
	if cfg.Encoding != "linear16" {
		t.Errorf("Encoding = %q, want linear16", cfg.Encoding)
	}
	if cfg.EndpointMs != 300 {
		t.Errorf("EndpointMs = %d, want 300", cfg.EndpointMs)
	}
	if cfg.StopGracePeriod != time.Second {
		t.Errorf("StopGracePeriod = %v, want 1s", cfg.StopGracePeriod)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STT_PROVIDER", "google")
	t.Setenv("DEFAULT_LANGUAGE", "ja")
	t.Setenv("STT_ENDPOINT_MS", "500")
	t.Setenv("STOP_GRACE_PERIOD", "2s")
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.STTProvider != "google" {
		t.Errorf("STTProvider = %q", cfg.STTProvider)
	}
	if cfg.DefaultLanguage != "ja" {
		t.Errorf("DefaultLanguage = %q", cfg.DefaultLanguage)
	}
	if cfg.EndpointMs != 500 {
		t.Errorf("EndpointMs = %d", cfg.EndpointMs)
	}
	if cfg.StopGracePeriod != 2*time.Second {
		t.Errorf("StopGracePeriod = %v", cfg.StopGracePeriod)
	}
	if cfg.DeepgramAPIKey != "dg-key" {
		t.Errorf("DeepgramAPIKey = %q", cfg.DeepgramAPIKey)
	}
}

func TestLoad_IgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("STT_ENDPOINT_MS", "not-a-number")
	t.Setenv("STOP_GRACE_PERIOD", "-5s")

	cfg := Load()

	if cfg.EndpointMs != 300 {
		t.Errorf("EndpointMs = %d, want default on bad value", cfg.EndpointMs)
	}
	if cfg.StopGracePeriod != time.Second {
		t.Errorf("StopGracePeriod = %v, want default on bad value", cfg.StopGracePeriod)
	}
}
