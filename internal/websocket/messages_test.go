package websocket

import (
	"encoding/json"
	"testing"
)

func TestParseControlMessage_Valid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ControlMessage
	}{
		{
			name: "start with language",
			raw:  `{"type":"start","language":"es"}`,
			want: ControlMessage{Type: ControlStart, Language: "es"},
		},
		{
			name: "start without language",
			raw:  `{"type":"start"}`,
			want: ControlMessage{Type: ControlStart},
		},
		{
			name: "audio",
			raw:  `{"type":"audio","audio":"AAAA"}`,
			want: ControlMessage{Type: ControlAudio, Audio: "AAAA"},
		},
		{
			name: "stop",
			raw:  `{"type":"stop"}`,
			want: ControlMessage{Type: ControlStop},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseControlMessage([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseControlMessage failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseControlMessage_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{broken`},
		{"missing type", `{"language":"en"}`},
		{"unknown type", `{"type":"pause"}`},
		{"audio without payload", `{"type":"audio"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseControlMessage([]byte(tt.raw)); err == nil {
				t.Errorf("expected error for %s", tt.raw)
			}
		})
	}
}

func TestNewTranscriptMessage_WireShape(t *testing.T) {
	raw, err := json.Marshal(NewTranscriptMessage("bonjour", false))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded struct {
		Type string `json:"type"`
		Data struct {
			Channel struct {
				Alternatives []struct {
					Transcript string `json:"transcript"`
				} `json:"alternatives"`
			} `json:"channel"`
			IsFinal bool `json:"is_final"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Type != EventTranscript {
		t.Errorf("type = %q, want %q", decoded.Type, EventTranscript)
	}
	if len(decoded.Data.Channel.Alternatives) != 1 ||
		decoded.Data.Channel.Alternatives[0].Transcript != "bonjour" {
		t.Errorf("payload missing channel.alternatives[0].transcript: %s", raw)
	}
	if decoded.Data.IsFinal {
		t.Error("interim transcript must have is_final=false")
	}
}

func TestNewStatusMessage(t *testing.T) {
	msg := NewStatusMessage(StatusConnected)
	if msg.Type != EventStatus || msg.Message != StatusConnected {
		t.Errorf("unexpected status message: %+v", msg)
	}
	if msg.Timestamp == "" {
		t.Error("status message missing timestamp")
	}
}

func TestNewErrorMessage_OmitsEmptyFields(t *testing.T) {
	raw, _ := json.Marshal(NewErrorMessage("boom", ""))

	var m map[string]interface{}
	json.Unmarshal(raw, &m)

	if _, ok := m["details"]; ok {
		t.Error("empty details must be omitted")
	}
	if _, ok := m["data"]; ok {
		t.Error("error message must not carry transcript data")
	}
}
