package repositories

import "context"

// RecognizerConfig carries the audio and language parameters for a streaming
// recognition session.
type RecognizerConfig struct {
	Language     string `json:"language"`
	SampleRate   int    `json:"sample_rate"`
	Channels     int    `json:"channels"`
	Encoding     string `json:"encoding"`
	Interim      bool   `json:"interim"`
	EndpointMs   int    `json:"endpoint_ms"`
}

// LinkEventKind tags the closed set of events a recognizer stream can emit.
type LinkEventKind string

const (
	LinkOpen       LinkEventKind = "open"
	LinkTranscript LinkEventKind = "transcript"
	LinkMetadata   LinkEventKind = "metadata"
	LinkWarning    LinkEventKind = "warning"
	LinkError      LinkEventKind = "error"
	LinkClosed     LinkEventKind = "closed"
)

// LinkEvent is a single asynchronous event from a recognizer stream.
// Text and IsFinal are meaningful only for LinkTranscript; Message carries
// warning/error/metadata detail.
type LinkEvent struct {
	Kind    LinkEventKind
	Text    string
	IsFinal bool
	Message string
}

// LinkEventSink receives recognizer events in provider arrival order.
// Implementations must treat the callback as non-blocking.
type LinkEventSink func(LinkEvent)

// Recognizer opens streaming recognition sessions against a speech provider.
type Recognizer interface {
	// Open establishes the upstream stream and starts delivering events to
	// sink. Audio may be sent only after the sink has observed LinkOpen.
	Open(ctx context.Context, config RecognizerConfig, sink LinkEventSink) (RecognizerStream, error)
}

// RecognizerStream is one live upstream connection. It is owned by exactly
// one session and is never shared.
type RecognizerStream interface {
	// Ready reports whether the underlying transport accepts audio.
	Ready() bool
	// Send forwards one frame of raw audio bytes.
	Send(data []byte) error
	// Finish signals end-of-input so the provider can flush trailing final
	// results. No further audio is accepted afterwards.
	Finish() error
	// Close releases the connection. Idempotent; safe after Finish.
	Close() error
}
