package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mavoice/internal/queue"
)

const (
	keepaliveInterval = 20 * time.Second
	keepaliveTimeout  = 5 * time.Second

	// audioLogEvery throttles the per-chunk debug line.
	audioLogEvery = 50
)

// State is the lifecycle phase of a [Session].
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// errHalfDone ends the errgroup so that the sibling half is cancelled.
var errHalfDone = errors.New("live: session half finished")

type commandKind int

const (
	cmdAudio commandKind = iota
	cmdText
	cmdActivityStart
	cmdActivityEnd
	cmdToolResponse
	cmdClose
)

type command struct {
	kind     commandKind
	pcm      []byte
	text     string
	response functionResponse
}

// wire builds the JSON message for a non-close command.
func (c command) wire() any {
	switch c.kind {
	case cmdAudio:
		return realtimeInputMessage{RealtimeInput: realtimeInput{Audio: &blob{
			MIMEType: audioMIMEType,
			Data:     base64.StdEncoding.EncodeToString(c.pcm),
		}}}
	case cmdText:
		return clientContentMessage{ClientContent: clientContent{
			Turns:        []contentTurn{{Role: "user", Parts: []part{{Text: c.text}}}},
			TurnComplete: true,
		}}
	case cmdActivityStart:
		return realtimeInputMessage{RealtimeInput: realtimeInput{ActivityStart: &struct{}{}}}
	case cmdActivityEnd:
		return realtimeInputMessage{RealtimeInput: realtimeInput{ActivityEnd: &struct{}{}}}
	case cmdToolResponse:
		return toolResponseMessage{ToolResponse: toolResponse{
			FunctionResponses: []functionResponse{c.response},
		}}
	}
	return nil
}

// Session is one open duplex connection. All Send methods and Close are
// non-blocking and safe to call from any goroutine, including an audio
// callback.
type Session struct {
	id   string
	conn *websocket.Conn
	log  *slog.Logger

	state    atomic.Int32
	out      *queue.Queue[command]
	in       *queue.Queue[Event]
	events   chan Event
	done     chan struct{}
	pumped   chan struct{}
	cancel   context.CancelFunc
	ctx      context.Context
	closing  sync.Once
	finished sync.Once

	// abandoned is closed when the session ends with no reader attached.
	abandoned chan struct{}
	attached  atomic.Bool
	abandon   sync.Once

	audioSent atomic.Int64
}

func newSession(conn *websocket.Conn, log *slog.Logger) *Session {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        id,
		conn:      conn,
		log:       log.With("session_id", id),
		out:       queue.New[command](64),
		in:        queue.New[Event](16),
		events:    make(chan Event),
		done:      make(chan struct{}),
		pumped:    make(chan struct{}),
		abandoned: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.state.Store(int32(StateConnecting))
	return s
}

func (s *Session) start() {
	g, gctx := errgroup.WithContext(s.ctx)
	g.Go(func() error { return s.writeLoop(gctx) })
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.keepaliveLoop(gctx) })

	go s.pump()
	go func() {
		_ = g.Wait()
		s.finish(Closed{Reason: "session ended"})
		s.conn.CloseNow()
		s.cancel()
		if !s.attached.Load() {
			s.markAbandoned()
			<-s.pumped
		}
		s.log.Info("live session finished", "state", s.State(), "audio_chunks_sent", s.audioSent.Load())
		close(s.done)
	}()
}

// ID returns the session's local identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle phase.
func (s *Session) State() State { return State(s.state.Load()) }

// IsOpen reports whether the session still accepts commands.
func (s *Session) IsOpen() bool {
	switch s.State() {
	case StateConnecting, StateOpen:
		return true
	}
	return false
}

// Events returns the inbound event stream. It is closed after the terminal
// event. A consumer that calls Events must keep reading until then. A session
// whose Events was never called drops its events once closed.
func (s *Session) Events() <-chan Event {
	s.attached.Store(true)
	return s.events
}

// Done is closed once both halves have stopped and the transport is released.
func (s *Session) Done() <-chan struct{} { return s.done }

// SendAudio queues a chunk of s16le 16 kHz mono PCM.
func (s *Session) SendAudio(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	s.send(command{kind: cmdAudio, pcm: pcm})
}

// SendText queues a complete user text turn.
func (s *Session) SendText(text string) {
	s.send(command{kind: cmdText, text: text})
}

// SendActivityStart marks the start of user speech for manual activity detection.
func (s *Session) SendActivityStart() { s.send(command{kind: cmdActivityStart}) }

// SendActivityEnd marks the end of user speech.
func (s *Session) SendActivityEnd() { s.send(command{kind: cmdActivityEnd}) }

// SendToolResponse queues the result of a tool call. A response that is not
// a JSON object is wrapped as {"output": response}.
func (s *Session) SendToolResponse(id, name string, response json.RawMessage) {
	s.send(command{kind: cmdToolResponse, response: functionResponse{
		ID:       id,
		Name:     name,
		Response: objectResponse(response),
	}})
}

// DropPendingAudio removes audio chunks that are queued but not yet written.
func (s *Session) DropPendingAudio() int {
	n := s.out.RemoveFunc(func(c command) bool { return c.kind == cmdAudio })
	if n > 0 {
		s.log.Debug("dropped pending audio", "chunks", n)
	}
	return n
}

// Close asks the outbound half to flush queued commands, send a close frame
// and stop. It returns immediately and is safe to call repeatedly.
func (s *Session) Close() {
	s.closing.Do(func() {
		s.state.CompareAndSwap(int32(StateConnecting), int32(StateClosing))
		s.state.CompareAndSwap(int32(StateOpen), int32(StateClosing))
		s.out.Push(command{kind: cmdClose})
		s.out.Close()
		if !s.attached.Load() {
			s.markAbandoned()
		}
	})
}

func (s *Session) markAbandoned() {
	s.abandon.Do(func() { close(s.abandoned) })
}

func (s *Session) send(c command) {
	if !s.IsOpen() || !s.out.Push(c) {
		s.log.Debug("dropping command on closed session", "kind", c.kind)
	}
}

// writeLoop is the outbound half.
func (s *Session) writeLoop(ctx context.Context) error {
	for {
		c, err := s.out.Pop(ctx)
		if err != nil {
			return errHalfDone
		}

		if c.kind == cmdClose {
			if err := s.conn.Close(websocket.StatusNormalClosure, "client closing"); err != nil {
				s.log.Debug("close handshake", "err", err)
			}
			return errHalfDone
		}

		data, err := json.Marshal(c.wire())
		if err != nil {
			s.log.Error("encode outbound command", "kind", c.kind, "err", err)
			continue
		}
		if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
			if ctx.Err() == nil {
				s.finish(Error{Err: fmt.Errorf("%w: write: %v", ErrTransport, err)})
			}
			return errHalfDone
		}

		if c.kind == cmdAudio {
			if n := s.audioSent.Add(1); n%audioLogEvery == 0 {
				s.log.Debug("audio chunks sent", "count", n)
			}
		}
	}
}

// readLoop is the inbound half.
func (s *Session) readLoop(ctx context.Context) error {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			s.finish(s.terminalEvent(err))
			return errHalfDone
		}

		// Text and binary frames both carry JSON.
		msg, err := decodeServerMessage(data)
		if err != nil {
			s.log.Warn("dropping inbound message", "err", err)
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Session) terminalEvent(err error) Event {
	var ce websocket.CloseError
	switch {
	case errors.As(err, &ce):
		return Closed{Reason: fmt.Sprintf("code=%d, reason=%s", int(ce.Code), ce.Reason)}
	case s.State() == StateClosing:
		return Closed{Reason: "closed by client"}
	default:
		return Error{Err: fmt.Errorf("%w: read: %v", ErrTransport, err)}
	}
}

func (s *Session) dispatch(msg *serverMessage) {
	if msg.GoAway != nil {
		s.log.Warn("server will disconnect soon", "time_left", msg.GoAway.TimeLeft)
	}
	if msg.Error != nil {
		s.log.Warn("server error", "code", msg.Error.Code, "status", msg.Error.Status, "message", msg.Error.Message)
	}
	if sc := msg.ServerContent; sc != nil {
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			s.log.Debug("user said", "text", sc.InputTranscription.Text)
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			s.log.Debug("model said", "text", sc.OutputTranscription.Text)
		}
	}

	events, err := msg.events()
	if err != nil {
		s.log.Warn("skipping undecodable parts", "err", err)
	}
	for _, ev := range events {
		if _, ok := ev.(Ready); ok {
			s.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
			s.log.Info("live session ready")
		}
		s.in.Push(ev)
	}
}

func (s *Session) keepaliveLoop(ctx context.Context) error {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, keepaliveTimeout)
			if err := s.conn.Ping(pingCtx); err != nil && ctx.Err() == nil {
				s.log.Debug("keepalive ping failed", "err", err)
			}
			cancel()
		}
	}
}

// finish records the terminal event exactly once.
func (s *Session) finish(ev Event) {
	s.finished.Do(func() {
		switch e := ev.(type) {
		case Closed:
			s.state.Store(int32(StateClosed))
			s.log.Info("live session closed", "reason", e.Reason)
		case Error:
			s.state.Store(int32(StateErrored))
			s.log.Error("live session failed", "err", e.Err)
		}
		s.out.Close()
		s.in.Push(ev)
		s.in.Close()
	})
}

// pump moves events from the unbounded inbox onto the public channel. It
// stops early once the session is abandoned.
func (s *Session) pump() {
	defer close(s.pumped)
	defer close(s.events)
	for {
		ev, err := s.in.Pop(context.Background())
		if err != nil {
			return
		}
		select {
		case s.events <- ev:
		case <-s.abandoned:
			s.log.Debug("events dropped, no reader attached")
			return
		}
	}
}
