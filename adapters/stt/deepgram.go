package stt

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	dginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/listen"
	"go.uber.org/zap"

	"github.com/lingopal/server/domain/repositories"
)

const deepgramModel = "nova-2"

// DeepgramRecognizer opens live transcription streams against Deepgram.
type DeepgramRecognizer struct {
	apiKey string
	logger *zap.Logger
}

var _ repositories.Recognizer = (*DeepgramRecognizer)(nil)

// NewDeepgramRecognizer creates a Deepgram-backed recognizer.
func NewDeepgramRecognizer(apiKey string, logger *zap.Logger) (*DeepgramRecognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram API key is required")
	}
	return &DeepgramRecognizer{apiKey: apiKey, logger: logger}, nil
}

// Open dials the live transcription websocket. The connection is established
// asynchronously; the sink observes LinkOpen once audio may flow.
func (r *DeepgramRecognizer) Open(ctx context.Context, config repositories.RecognizerConfig, sink repositories.LinkEventSink) (repositories.RecognizerStream, error) {
	cOptions := &dginterfaces.ClientOptions{
		EnableKeepAlive: true,
	}
	tOptions := &dginterfaces.LiveTranscriptionOptions{
		Model:          deepgramModel,
		Language:       config.Language,
		Punctuate:      true,
		SmartFormat:    true,
		InterimResults: config.Interim,
		Encoding:       config.Encoding,
		Channels:       config.Channels,
		SampleRate:     config.SampleRate,
		Endpointing:    strconv.Itoa(config.EndpointMs),
	}

	stream := &deepgramStream{
		handler: &deepgramHandler{sink: sink, logger: r.logger},
		logger:  r.logger,
	}

	client, err := listen.NewWebSocket(ctx, r.apiKey, cOptions, tOptions, stream.handler)
	if err != nil {
		return nil, fmt.Errorf("error creating live transcription connection: %w", err)
	}
	stream.client = client

	go func() {
		if !client.Connect() {
			sink(repositories.LinkEvent{
				Kind:    repositories.LinkError,
				Message: "failed to connect to speech recognition service",
			})
		}
	}()

	return stream, nil
}

// deepgramStream adapts the SDK client to the session-facing contract.
type deepgramStream struct {
	client  *listen.LiveClient
	handler *deepgramHandler
	logger  *zap.Logger
	stop    sync.Once
}

func (s *deepgramStream) Ready() bool {
	return s.handler.ready()
}

func (s *deepgramStream) Send(data []byte) error {
	return s.client.WriteBinary(data)
}

// Finish closes the upstream gracefully; Deepgram flushes trailing final
// results before its close frame.
func (s *deepgramStream) Finish() error {
	s.stop.Do(func() {
		s.handler.setReady(false)
		s.client.Stop()
	})
	return nil
}

func (s *deepgramStream) Close() error {
	return s.Finish()
}

// deepgramHandler receives the SDK's event callbacks and forwards them as
// link events. It is a separate type so the stream can expose its own Close.
type deepgramHandler struct {
	sink   repositories.LinkEventSink
	logger *zap.Logger

	mu     sync.Mutex
	isOpen bool
}

func (h *deepgramHandler) ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isOpen
}

func (h *deepgramHandler) setReady(ready bool) {
	h.mu.Lock()
	h.isOpen = ready
	h.mu.Unlock()
}

func (h *deepgramHandler) Open(ocr *api.OpenResponse) error {
	h.logger.Info("Deepgram connection opened")
	h.setReady(true)
	h.sink(repositories.LinkEvent{Kind: repositories.LinkOpen})
	return nil
}

func (h *deepgramHandler) Message(mr *api.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	h.sink(repositories.LinkEvent{
		Kind:    repositories.LinkTranscript,
		Text:    mr.Channel.Alternatives[0].Transcript,
		IsFinal: mr.IsFinal,
	})
	return nil
}

func (h *deepgramHandler) Metadata(md *api.MetadataResponse) error {
	h.sink(repositories.LinkEvent{
		Kind:    repositories.LinkMetadata,
		Message: md.RequestID,
	})
	return nil
}

func (h *deepgramHandler) SpeechStarted(ssr *api.SpeechStartedResponse) error {
	h.logger.Debug("Speech started", zap.Float64("timestamp", ssr.Timestamp))
	return nil
}

func (h *deepgramHandler) UtteranceEnd(ur *api.UtteranceEndResponse) error {
	h.logger.Debug("Utterance ended", zap.Float64("lastWordEnd", ur.LastWordEnd))
	return nil
}

func (h *deepgramHandler) Close(ocr *api.CloseResponse) error {
	h.logger.Info("Deepgram connection closed", zap.String("type", ocr.Type))
	h.setReady(false)
	h.sink(repositories.LinkEvent{Kind: repositories.LinkClosed})
	return nil
}

func (h *deepgramHandler) Error(er *api.ErrorResponse) error {
	h.logger.Error("Deepgram error",
		zap.String("type", er.Type),
		zap.String("description", er.Description))
	h.setReady(false)
	h.sink(repositories.LinkEvent{
		Kind:    repositories.LinkError,
		Message: er.Description,
	})
	return nil
}

func (h *deepgramHandler) UnhandledEvent(byData []byte) error {
	h.logger.Warn("Unhandled Deepgram event", zap.ByteString("data", byData))
	return nil
}
