package stt

import (
	"context"
	"sync"

	"github.com/lingopal/server/domain/repositories"
)

// FakeRecognizer is a scripted recognizer for tests. It records every
// opened stream and lets the test drive link events by hand.
type FakeRecognizer struct {
	mu      sync.Mutex
	streams []*FakeStream

	// OpenErr, when set, makes Open fail.
	OpenErr error
}

var _ repositories.Recognizer = (*FakeRecognizer)(nil)

// NewFakeRecognizer creates an empty fake.
func NewFakeRecognizer() *FakeRecognizer {
	return &FakeRecognizer{}
}

// Open records a new stream wired to sink.
func (f *FakeRecognizer) Open(ctx context.Context, config repositories.RecognizerConfig, sink repositories.LinkEventSink) (repositories.RecognizerStream, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	s := &FakeStream{Config: config, sink: sink}
	f.mu.Lock()
	f.streams = append(f.streams, s)
	f.mu.Unlock()
	return s, nil
}

// OpenCount reports how many streams were ever instantiated.
func (f *FakeRecognizer) OpenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

// Stream returns the i-th opened stream.
func (f *FakeRecognizer) Stream(i int) *FakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[i]
}

// FakeStream records audio frames and lifecycle calls, and emits scripted
// link events through its sink.
type FakeStream struct {
	Config repositories.RecognizerConfig

	mu          sync.Mutex
	sink        repositories.LinkEventSink
	ready       bool
	sent        [][]byte
	finishCalls int
	closeCalls  int
}

var _ repositories.RecognizerStream = (*FakeStream)(nil)

func (s *FakeStream) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *FakeStream) Send(data []byte) error {
	frame := make([]byte, len(data))
	copy(frame, data)
	s.mu.Lock()
	s.sent = append(s.sent, frame)
	s.mu.Unlock()
	return nil
}

func (s *FakeStream) Finish() error {
	s.mu.Lock()
	s.finishCalls++
	s.ready = false
	s.mu.Unlock()
	return nil
}

func (s *FakeStream) Close() error {
	s.mu.Lock()
	s.closeCalls++
	s.ready = false
	s.mu.Unlock()
	return nil
}

// Sent returns the forwarded audio frames in order.
func (s *FakeStream) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

// FinishCalls reports how many times Finish was invoked.
func (s *FakeStream) FinishCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishCalls
}

// CloseCalls reports how many times Close was invoked.
func (s *FakeStream) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

// EmitOpen marks the stream ready and delivers the open event.
func (s *FakeStream) EmitOpen() {
	s.mu.Lock()
	s.ready = true
	sink := s.sink
	s.mu.Unlock()
	sink(repositories.LinkEvent{Kind: repositories.LinkOpen})
}

// EmitTranscript delivers one transcript event.
func (s *FakeStream) EmitTranscript(text string, isFinal bool) {
	s.sink(repositories.LinkEvent{
		Kind:    repositories.LinkTranscript,
		Text:    text,
		IsFinal: isFinal,
	})
}

// EmitError delivers one error event and marks the stream not ready.
func (s *FakeStream) EmitError(message string) {
	s.mu.Lock()
	s.ready = false
	s.mu.Unlock()
	s.sink(repositories.LinkEvent{
		Kind:    repositories.LinkError,
		Message: message,
	})
}

// EmitClosed delivers an unsolicited close event.
func (s *FakeStream) EmitClosed() {
	s.mu.Lock()
	s.ready = false
	s.mu.Unlock()
	s.sink(repositories.LinkEvent{Kind: repositories.LinkClosed})
}
