package stt

import (
	"context"
	"fmt"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/lingopal/server/domain/repositories"
)

// GoogleRecognizer opens streaming recognition sessions against Google
// Cloud Speech-to-Text. Credentials come from the ambient Google
// application-default credentials.
type GoogleRecognizer struct {
	logger *zap.Logger
}

var _ repositories.Recognizer = (*GoogleRecognizer)(nil)

// NewGoogleRecognizer creates a Google Cloud backed recognizer.
func NewGoogleRecognizer(logger *zap.Logger) *GoogleRecognizer {
	return &GoogleRecognizer{logger: logger}
}

// Open creates the streaming RPC, sends the recognition configuration and
// starts the receive loop. LinkOpen is emitted once the stream is ready for
// audio; gRPC has no separate open handshake beyond config acceptance.
func (g *GoogleRecognizer) Open(ctx context.Context, config repositories.RecognizerConfig, sink repositories.LinkEventSink) (repositories.RecognizerStream, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	encoding, err := googleEncoding(config.Encoding)
	if err != nil {
		stream.CloseSend()
		client.Close()
		return nil, err
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:          encoding,
					SampleRateHertz:   int32(config.SampleRate),
					AudioChannelCount: int32(config.Channels),
					LanguageCode:      config.Language,
				},
				InterimResults: config.Interim,
			},
		},
	}); err != nil {
		stream.CloseSend()
		client.Close()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	gs := &googleStream{
		client: client,
		stream: stream,
		sink:   sink,
		logger: g.logger,
		open:   true,
	}
	go gs.receive()

	sink(repositories.LinkEvent{Kind: repositories.LinkOpen})
	return gs, nil
}

type googleStream struct {
	client *speech.Client
	stream speechpb.Speech_StreamingRecognizeClient
	sink   repositories.LinkEventSink
	logger *zap.Logger

	mu       sync.Mutex
	open     bool
	finished bool
	closed   bool
}

func (g *googleStream) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

func (g *googleStream) Send(data []byte) error {
	g.mu.Lock()
	if !g.open {
		g.mu.Unlock()
		return fmt.Errorf("stream is not accepting audio")
	}
	g.mu.Unlock()

	return g.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: data,
		},
	})
}

// Finish half-closes the RPC so the service flushes remaining results; the
// receive loop reports them and then the stream end.
func (g *googleStream) Finish() error {
	g.mu.Lock()
	if g.finished {
		g.mu.Unlock()
		return nil
	}
	g.finished = true
	g.open = false
	g.mu.Unlock()

	return g.stream.CloseSend()
}

func (g *googleStream) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	g.Finish()
	return g.client.Close()
}

func (g *googleStream) receive() {
	for {
		resp, err := g.stream.Recv()
		if err == io.EOF {
			g.mu.Lock()
			g.open = false
			g.mu.Unlock()
			g.sink(repositories.LinkEvent{Kind: repositories.LinkClosed})
			return
		}
		if err != nil {
			g.mu.Lock()
			g.open = false
			g.mu.Unlock()
			g.sink(repositories.LinkEvent{
				Kind:    repositories.LinkError,
				Message: err.Error(),
			})
			return
		}

		for _, result := range resp.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			g.sink(repositories.LinkEvent{
				Kind:    repositories.LinkTranscript,
				Text:    result.Alternatives[0].Transcript,
				IsFinal: result.IsFinal,
			})
		}
	}
}

func googleEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "linear16", "LINEAR16", "WAV":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported audio encoding: %s", encoding)
	}
}
