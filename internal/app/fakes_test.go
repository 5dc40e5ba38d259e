package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"mavoice/internal/app"
	"mavoice/internal/audio"
	"mavoice/internal/dashboard"
	"mavoice/internal/input"
	"mavoice/internal/live"
	"mavoice/internal/overlay"
	"mavoice/internal/tray"
)

// callLog records cross-fake call order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) index(s string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, c := range l.calls {
		if c == s {
			return i
		}
	}
	return -1
}

type fakeRecorder struct {
	log *callLog

	mu        sync.Mutex
	recording bool
	sink      audio.StreamingSink
	starts    int
	stops     int
	startErr  error
	stopErr   error
}

func (r *fakeRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.add("recorder.start")
	if r.startErr != nil {
		return r.startErr
	}
	if r.recording {
		return audio.ErrAlreadyRecording
	}
	r.recording = true
	r.starts++
	return nil
}

func (r *fakeRecorder) Stop() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.add("recorder.stop")
	if !r.recording {
		return nil, audio.ErrNotRecording
	}
	r.recording = false
	r.stops++
	if r.stopErr != nil {
		return nil, r.stopErr
	}
	return []byte("RIFF-wav"), nil
}

func (r *fakeRecorder) SetStreamingSink(s audio.StreamingSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = s
}

func (r *fakeRecorder) Levels() audio.Levels { return audio.Levels{} }

func (r *fakeRecorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func (r *fakeRecorder) state() (recording bool, sink audio.StreamingSink, starts, stops int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording, r.sink, r.starts, r.stops
}

type fakePlayer struct {
	mu       sync.Mutex
	enqueued int
	cleared  int
	closed   bool
}

func (p *fakePlayer) Enqueue(pcm []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enqueued += len(pcm)
}

func (p *fakePlayer) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared++
}

func (p *fakePlayer) OutputLevels() audio.Levels { return audio.Levels{} }

func (p *fakePlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePlayer) state() (enqueued, cleared int, closed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enqueued, p.cleared, p.closed
}

type toolResponse struct {
	id, name string
	response json.RawMessage
}

type fakeSession struct {
	events chan live.Event

	mu        sync.Mutex
	audio     int
	responses []toolResponse
	drops     int
	closed    bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan live.Event, 16)}
}

func (s *fakeSession) ID() string                { return "sess-1" }
func (s *fakeSession) Events() <-chan live.Event { return s.events }

func (s *fakeSession) send(ev live.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.events <- ev
	}
}

// unread reports events not yet taken from the channel.
func (s *fakeSession) unread() int { return len(s.events) }

func (s *fakeSession) SendAudio(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio += len(pcm)
}

func (s *fakeSession) SendToolResponse(id, name string, response json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, toolResponse{id: id, name: name, response: response})
}

func (s *fakeSession) DropPendingAudio() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drops++
	return 3
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSession) toolResponses() []toolResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]toolResponse(nil), s.responses...)
}

// fakeTranscriber returns text, or blocks on gate when it is set.
type fakeTranscriber struct {
	text string
	err  error
	gate chan struct{}

	mu    sync.Mutex
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type injection struct {
	text   string
	target input.Target
}

type fakeInjector struct {
	log *callLog

	mu       sync.Mutex
	injected []injection
}

func (f *fakeInjector) ActiveWindow() (input.Target, error) {
	f.log.add("injector.active_window")
	return "42", nil
}

func (f *fakeInjector) Inject(text string, target input.Target) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.injected = append(f.injected, injection{text: text, target: target})
	return nil
}

func (f *fakeInjector) injections() []injection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]injection(nil), f.injected...)
}

// fakeTools blocks each call until release is closed or its context ends.
type fakeTools struct {
	started   chan string
	cancelled chan string
	release   chan struct{}
}

func newFakeTools() *fakeTools {
	return &fakeTools{
		started:   make(chan string, 8),
		cancelled: make(chan string, 8),
		release:   make(chan struct{}),
	}
}

func (f *fakeTools) Execute(ctx context.Context, name string, args json.RawMessage) json.RawMessage {
	f.started <- name
	select {
	case <-f.release:
		return json.RawMessage(`{"ok":true}`)
	case <-ctx.Done():
		f.cancelled <- name
		return json.RawMessage(`{"error":"cancelled"}`)
	}
}

type fakeDashboard struct {
	mu     sync.Mutex
	events []string
	last   map[string]dashboard.Payload
}

func (d *fakeDashboard) Broadcast(typ string, p dashboard.Payload) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, typ)
	if d.last == nil {
		d.last = make(map[string]dashboard.Payload)
	}
	d.last[typ] = p
}

func (d *fakeDashboard) has(typ string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.last[typ]
	return ok
}

func (d *fakeDashboard) payload(typ string) dashboard.Payload {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last[typ]
}

type fakeNotifier struct {
	mu      sync.Mutex
	success []string
	empty   int
	errs    []string
}

func (n *fakeNotifier) Success(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.success = append(n.success, text)
}

func (n *fakeNotifier) Empty() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.empty++
}

func (n *fakeNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, msg)
}

func (n *fakeNotifier) counts() (success, empty, errs int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.success), n.empty, len(n.errs)
}

type fakeOverlay struct {
	log *callLog

	mu      sync.Mutex
	visible bool
	frames  int
	last    overlay.Frame
}

func (o *fakeOverlay) Show() {
	o.log.add("overlay.show")
	o.mu.Lock()
	defer o.mu.Unlock()
	o.visible = true
}

func (o *fakeOverlay) Hide() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.visible = false
}

func (o *fakeOverlay) Render(f overlay.Frame) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frames++
	o.last = f
}

func (o *fakeOverlay) isVisible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

func (o *fakeOverlay) lastFrame() overlay.Frame {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

type fakeTray struct {
	mu    sync.Mutex
	state tray.State
}

func (f *fakeTray) SetState(s tray.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

func (f *fakeTray) get() tray.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// harness runs an App against fakes until the test ends.
type harness struct {
	app    *app.App
	log    *callLog
	rec    *fakeRecorder
	player *fakePlayer
	sess   *fakeSession
	tr     *fakeTranscriber
	inj    *fakeInjector
	tools  *fakeTools
	dash   *fakeDashboard
	notes  *fakeNotifier
	ov     *fakeOverlay
	tray   *fakeTray

	// dial replaces the default dial, which returns sess at once.
	dial func(ctx context.Context) (app.Session, error)
	// stop cancels Run and waits for it to return.
	stop func()
}

var errDial = errors.New("dial refused")

func testOptions() app.Options {
	return app.Options{
		ClickWindow:   60 * time.Millisecond,
		ClickCooldown: 100 * time.Millisecond,
		AltWindow:     100 * time.Millisecond,
		DoneHold:      80 * time.Millisecond,
		FrameInterval: 5 * time.Millisecond,
		ToolTimeout:   time.Minute,
	}
}

func newHarness(t *testing.T, configure ...func(*harness, *app.Options)) *harness {
	t.Helper()
	log := &callLog{}
	h := &harness{
		log:    log,
		rec:    &fakeRecorder{log: log},
		player: &fakePlayer{},
		sess:   newFakeSession(),
		tr:     &fakeTranscriber{text: "hello world"},
		inj:    &fakeInjector{log: log},
		tools:  newFakeTools(),
		dash:   &fakeDashboard{},
		notes:  &fakeNotifier{},
		ov:     &fakeOverlay{log: log},
		tray:   &fakeTray{},
	}
	opts := testOptions()
	for _, c := range configure {
		c(h, &opts)
	}

	deps := app.Deps{
		Recorder:    h.rec,
		NewPlayer:   func() (app.Player, error) { return h.player, nil },
		Transcriber: h.tr,
		Dial: func(ctx context.Context) (app.Session, error) {
			if h.dial != nil {
				return h.dial(ctx)
			}
			return h.sess, nil
		},
		Injector:  h.inj,
		Tools:     h.tools,
		Dashboard: h.dash,
		Notifier:  h.notes,
		Overlay:   h.ov,
		Tray:      h.tray,
	}
	a, err := app.New(deps, opts, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.app = a

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	var runErr error
	go func() {
		runErr = a.Run(ctx)
		close(stopped)
	}()
	var once sync.Once
	h.stop = func() {
		once.Do(func() {
			cancel()
			select {
			case <-stopped:
				if runErr != nil {
					t.Errorf("Run: %v", runErr)
				}
			case <-time.After(2 * time.Second):
				t.Error("Run did not return after cancel")
			}
		})
	}
	t.Cleanup(h.stop)
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (h *harness) waitMode(t *testing.T, want app.Mode) {
	t.Helper()
	waitFor(t, "mode "+want.String(), func() bool { return h.app.Mode() == want })
}

// startLive brings the app to GeminiListening.
func (h *harness) startLive(t *testing.T) {
	t.Helper()
	h.app.ToggleLive()
	h.waitMode(t, app.ModeGeminiConnecting)
	h.sess.send(live.Ready{})
	h.waitMode(t, app.ModeGeminiListening)
}
