package websocket

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lingopal/server/domain/repositories"
)

// SessionState is the lifecycle state of one transcription session.
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateConnecting SessionState = "connecting"
	StateActive     SessionState = "active"
	StateClosing    SessionState = "closing"
	StateClosed     SessionState = "closed"
)

// Sender delivers one event to the client. Implementations must be
// non-blocking and best-effort: if the channel is not open the event is
// silently dropped.
type Sender func(ServerMessage)

// SessionConfig is the read-only configuration handed to every session by
// the hub at connection time.
type SessionConfig struct {
	// Recognizer is nil when no provider credential is configured; start
	// requests then fail with an error event and the session stays idle.
	Recognizer repositories.Recognizer

	DefaultLanguage string
	SampleRate      int
	Channels        int
	Encoding        string
	EndpointMs      int

	// GracePeriod is observed between Finish() and releasing the recognizer
	// handle so trailing final transcripts can arrive.
	GracePeriod time.Duration

	Send   Sender
	Logger *zap.Logger
}

// internal session events; control messages, recognizer events and timers
// all funnel through one FIFO channel so the state machine never races.
type sessionEvent struct {
	control *ControlMessage
	link    *repositories.LinkEvent
	linkGen int
	grace   bool
}

// Session is the per-connection state machine bridging the client transport
// to at most one live recognizer stream. All state is owned by the Run
// goroutine; other goroutines only post events.
type Session struct {
	id     string
	cfg    SessionConfig
	logger *zap.Logger

	// owned by the Run goroutine
	state    SessionState
	language string
	link     repositories.RecognizerStream
	linkOpen bool
	gen      int

	events chan sessionEvent
	done   chan struct{}
	closed sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	// mirrors state for observers outside the Run goroutine
	mu sync.RWMutex
	st SessionState
}

// NewSession creates a session in the idle state. Run must be started for
// events to be processed.
func NewSession(cfg SessionConfig) *Session {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		cfg:    cfg,
		logger: cfg.Logger.With(zap.String("sessionID", id)),
		state:  StateIdle,
		st:     StateIdle,
		events: make(chan sessionEvent, 256),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// State reports the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

// Run processes events until the transport closes. It owns all session
// state; callers start it in its own goroutine.
func (s *Session) Run() {
	for {
		select {
		case ev := <-s.events:
			s.handle(ev)
		case <-s.done:
			s.shutdown()
			return
		}
	}
}

// Close is the transport-closed path. It is safe to call multiple times
// and from any goroutine; cleanup runs exactly once on the Run goroutine.
func (s *Session) Close() {
	s.closed.Do(func() {
		close(s.done)
	})
}

// HandleControl parses one inbound transport message and queues it. A
// malformed message produces an error event; the state machine continues
// processing subsequent messages.
func (s *Session) HandleControl(raw []byte) {
	msg, err := ParseControlMessage(raw)
	if err != nil {
		s.logger.Warn("Dropping malformed client message", zap.Error(err))
		s.cfg.Send(NewErrorMessage("invalid message", err.Error()))
		return
	}
	s.post(sessionEvent{control: &msg})
}

// post queues one event, giving up if the session is shutting down.
func (s *Session) post(ev sessionEvent) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Session) setState(st SessionState) {
	s.state = st
	s.mu.Lock()
	s.st = st
	s.mu.Unlock()
}

// handle is the single dispatch point for the state machine.
func (s *Session) handle(ev sessionEvent) {
	switch {
	case ev.control != nil:
		s.handleControl(*ev.control)
	case ev.link != nil:
		s.handleLinkEvent(ev.linkGen, *ev.link)
	case ev.grace:
		s.handleGraceElapsed(ev.linkGen)
	}
}

func (s *Session) handleControl(msg ControlMessage) {
	switch msg.Type {
	case ControlStart:
		s.handleStart(msg.Language)
	case ControlAudio:
		s.handleAudio(msg.Audio)
	case ControlStop:
		s.handleStop()
	}
}

func (s *Session) handleStart(language string) {
	if s.state != StateIdle {
		// Duplicate-start guard: never replace a live link.
		s.logger.Warn("Ignoring start while session busy",
			zap.String("state", string(s.state)))
		s.cfg.Send(NewErrorMessage("transcription already in progress", "duplicate start ignored"))
		return
	}

	if s.cfg.Recognizer == nil {
		s.logger.Error("Cannot start transcription: no recognizer credential configured")
		s.cfg.Send(NewErrorMessage("server not configured with a speech recognition API key", ""))
		return
	}

	if language == "" {
		language = s.cfg.DefaultLanguage
	}
	s.language = language
	s.gen++
	gen := s.gen

	s.setState(StateConnecting)
	s.logger.Info("Starting transcription",
		zap.String("language", language),
		zap.Int("sampleRate", s.cfg.SampleRate))

	link, err := s.cfg.Recognizer.Open(s.ctx, repositories.RecognizerConfig{
		Language:   language,
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
		Encoding:   s.cfg.Encoding,
		Interim:    true,
		EndpointMs: s.cfg.EndpointMs,
	}, func(ev repositories.LinkEvent) {
		s.post(sessionEvent{link: &ev, linkGen: gen})
	})
	if err != nil {
		s.logger.Error("Failed to open recognizer stream", zap.Error(err))
		s.cfg.Send(NewErrorMessage("failed to initialize transcription", err.Error()))
		s.setState(StateIdle)
		return
	}
	s.link = link
}

func (s *Session) handleAudio(payload string) {
	if s.state != StateActive {
		// Real-time semantics: frames are dropped, never buffered.
		s.logger.Debug("Dropping audio frame while not active",
			zap.String("state", string(s.state)))
		return
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		s.logger.Warn("Dropping audio frame with invalid base64", zap.Error(err))
		s.cfg.Send(NewErrorMessage("invalid audio payload", err.Error()))
		return
	}

	if s.link == nil || !s.linkOpen || !s.link.Ready() {
		s.logger.Warn("Dropping audio frame: recognizer not ready")
		return
	}

	if err := s.link.Send(data); err != nil {
		s.logger.Error("Failed to forward audio frame", zap.Error(err))
	}
}

func (s *Session) handleStop() {
	switch s.state {
	case StateActive:
		s.logger.Info("Stopping transcription, flushing trailing results")
		s.setState(StateClosing)
		if err := s.link.Finish(); err != nil {
			s.logger.Warn("Failed to finish recognizer stream", zap.Error(err))
		}
		gen := s.gen
		time.AfterFunc(s.cfg.GracePeriod, func() {
			s.post(sessionEvent{grace: true, linkGen: gen})
		})
	case StateConnecting:
		// Stop before the link opened: nothing to flush.
		s.logger.Info("Stop while connecting, releasing recognizer")
		s.releaseLink()
		s.setState(StateIdle)
	default:
		// Idempotent: stop while idle or already closing is a no-op.
		s.logger.Debug("Ignoring stop", zap.String("state", string(s.state)))
	}
}

func (s *Session) handleLinkEvent(gen int, ev repositories.LinkEvent) {
	if gen != s.gen {
		// Event from a link that has already been released.
		s.logger.Debug("Ignoring stale recognizer event",
			zap.String("kind", string(ev.Kind)))
		return
	}

	switch ev.Kind {
	case repositories.LinkOpen:
		if s.state == StateConnecting {
			s.linkOpen = true
			s.setState(StateActive)
			s.logger.Info("Recognizer stream opened")
			s.cfg.Send(NewStatusMessage(StatusConnected))
		} else {
			s.logger.Warn("Recognizer open event in unexpected state",
				zap.String("state", string(s.state)))
		}

	case repositories.LinkTranscript:
		// Relayed in arrival order, including during the stop grace window.
		s.logger.Debug("Transcript received",
			zap.String("text", ev.Text),
			zap.Bool("isFinal", ev.IsFinal))
		s.cfg.Send(NewTranscriptMessage(ev.Text, ev.IsFinal))

	case repositories.LinkMetadata:
		s.logger.Debug("Recognizer metadata", zap.String("metadata", ev.Message))

	case repositories.LinkWarning:
		s.logger.Warn("Recognizer warning", zap.String("warning", ev.Message))

	case repositories.LinkError:
		s.logger.Error("Recognizer stream error", zap.String("error", ev.Message))
		s.cfg.Send(NewErrorMessage(ev.Message, "speech recognition failed; retry start"))
		s.releaseLink()
		s.setState(StateIdle)

	case repositories.LinkClosed:
		s.logger.Info("Recognizer stream closed")
		s.cfg.Send(NewStatusMessage(StatusDisconnected))
		s.releaseLink()
		s.setState(StateIdle)
	}
}

func (s *Session) handleGraceElapsed(gen int) {
	if gen != s.gen || s.state != StateClosing {
		return
	}
	s.logger.Info("Grace period elapsed, releasing recognizer")
	s.releaseLink()
	s.setState(StateIdle)
}

// releaseLink drops the recognizer handle. Bumping the generation makes any
// in-flight events from the old link stale.
func (s *Session) releaseLink() {
	if s.link == nil {
		return
	}
	if err := s.link.Close(); err != nil {
		s.logger.Warn("Error releasing recognizer stream", zap.Error(err))
	}
	s.link = nil
	s.linkOpen = false
	s.gen++
}

// shutdown is the guaranteed-cleanup path, run exactly once when the
// transport closes.
func (s *Session) shutdown() {
	s.releaseLink()
	s.cancel()
	s.setState(StateClosed)
	s.logger.Info("Session closed")
}
