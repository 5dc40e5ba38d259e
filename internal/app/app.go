// Package app содержит оркестратор: единственную горутину, которая владеет
// режимом работы и связывает запись, распознавание, live-сессию и оверлей.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"mavoice/internal/audio"
	"mavoice/internal/input"
	"mavoice/internal/overlay"
	"mavoice/internal/queue"
)

// Mode - режим работы оркестратора.
type Mode int32

const (
	ModeIdle Mode = iota
	ModeGroqRecording
	ModeGroqProcessing
	ModeGroqDone
	ModeGeminiConnecting
	ModeGeminiListening
	ModeGeminiAISpeaking
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeGroqRecording:
		return "groq-recording"
	case ModeGroqProcessing:
		return "groq-processing"
	case ModeGroqDone:
		return "groq-done"
	case ModeGeminiConnecting:
		return "gemini-connecting"
	case ModeGeminiListening:
		return "gemini-listening"
	case ModeGeminiAISpeaking:
		return "gemini-ai-speaking"
	}
	return "unknown"
}

// Gemini возвращает true для режимов live-сессии.
func (m Mode) Gemini() bool {
	return m == ModeGeminiConnecting || m == ModeGeminiListening || m == ModeGeminiAISpeaking
}

// Options - тайминги и поведение оркестратора.
type Options struct {
	ClickWindow   time.Duration // окно двойного клика по оверлею
	ClickCooldown time.Duration // пауза после любого действия по клику
	AltWindow     time.Duration // окно двойного нажатия Alt
	DoneHold      time.Duration // сколько показывать Done
	FrameInterval time.Duration // период кадров анимации
	ToolTimeout   time.Duration // предел на один вызов инструмента

	// FlushOutboundOnInterrupt дополнительно выбрасывает неотправленный звук
	// микрофона при перебивании.
	FlushOutboundOnInterrupt bool
}

// DefaultOptions возвращает тайминги по умолчанию.
func DefaultOptions() Options {
	return Options{
		ClickWindow:   280 * time.Millisecond,
		ClickCooldown: 500 * time.Millisecond,
		AltWindow:     400 * time.Millisecond,
		DoneHold:      overlay.DoneHold,
		FrameInterval: 33 * time.Millisecond,
		ToolTimeout:   150 * time.Second,
	}
}

// ErrMissingDependency возвращается New при неполных Deps.
var ErrMissingDependency = errors.New("app: missing dependency")

// App - оркестратор сессий. Всё состояние принадлежит горутине Run; прочие
// горутины общаются с ней только через inbox.
type App struct {
	deps  Deps
	opts  Options
	log   *slog.Logger
	inbox *queue.Queue[message]
	now   func() time.Time

	// Снимок режима для чтения из других горутин.
	current atomic.Int32

	// Ниже - состояние горутины Run.
	ctx    context.Context
	mode   Mode
	visual overlay.VisualState

	// Диктовка.
	target      input.Target
	dictSeq     uint64
	dictCancel  context.CancelFunc
	doneUntil   time.Time
	overlayOpen bool
	nextFrame   time.Time

	// Live-сессия. gen растёт при каждом подключении и разрыве, события
	// с чужим gen отбрасываются.
	gen         uint64
	sess        Session
	player      Player
	connCancel  context.CancelFunc
	pendingTool map[string]context.CancelFunc

	// Жесты.
	clickPending  bool
	clickDeadline time.Time
	cooldownUntil time.Time
	lastAlt       time.Time
}

// New создаёт оркестратор.
func New(deps Deps, opts Options, log *slog.Logger) (*App, error) {
	switch {
	case deps.Recorder == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("recorder"))
	case deps.NewPlayer == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("player"))
	case deps.Transcriber == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("transcriber"))
	case deps.Dial == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("dial"))
	case deps.Injector == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("injector"))
	}
	if deps.Dashboard == nil {
		deps.Dashboard = noopBroadcaster{}
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if deps.Overlay == nil {
		deps.Overlay = noopRenderer{}
	}
	if deps.Tray == nil {
		deps.Tray = noopStatus{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &App{
		deps:        deps,
		opts:        opts,
		log:         log,
		inbox:       queue.New[message](64),
		now:         time.Now,
		pendingTool: make(map[string]context.CancelFunc),
	}, nil
}

// Mode возвращает текущий режим. Безопасно из любой горутины.
func (a *App) Mode() Mode { return Mode(a.current.Load()) }

// ToggleDictation - горячая клавиша или пункт меню диктовки.
func (a *App) ToggleDictation() { a.post(msgToggleDictation{}) }

// ToggleLive - горячая клавиша или пункт меню live-режима.
func (a *App) ToggleLive() { a.post(msgToggleLive{}) }

// Click - нажатие на оверлей.
func (a *App) Click() { a.post(msgClick{at: a.now()}) }

// AltPress - нажатие Alt.
func (a *App) AltPress() { a.post(msgAlt{at: a.now()}) }

// Cancel - ESC: запись отбрасывается, live-сессия закрывается.
func (a *App) Cancel() { a.post(msgCancel{}) }

func (a *App) post(m message) {
	if !a.inbox.Push(m) {
		a.log.Debug("сообщение после остановки отброшено", "msg", m)
	}
}

// Run обрабатывает события до отмены ctx. При выходе всё активное
// закрывается.
func (a *App) Run(ctx context.Context) error {
	a.ctx = ctx
	defer a.shutdown()

	for {
		deadline, ok := a.nextDeadline()
		popCtx, cancel := ctx, context.CancelFunc(func() {})
		if ok {
			popCtx, cancel = context.WithDeadline(ctx, deadline)
		}
		m, err := a.inbox.Pop(popCtx)
		cancel()

		switch {
		case err == nil:
			a.handle(m)
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, context.DeadlineExceeded):
		case errors.Is(err, queue.ErrClosed):
			return nil
		default:
			return err
		}
		a.fireDeadlines(a.now())
	}
}

func (a *App) handle(m message) {
	switch m := m.(type) {
	case msgToggleDictation:
		a.toggleDictation()
	case msgToggleLive:
		a.toggleLive()
	case msgClick:
		a.onClick(m.at)
	case msgAlt:
		a.onAlt(m.at)
	case msgCancel:
		a.cancel()
	case msgTranscribed:
		a.onTranscribed(m)
	case msgConnected:
		a.onConnected(m)
	case msgLiveEvent:
		a.onLiveEvent(m)
	case msgToolResult:
		a.onToolResult(m)
	}
}

// nextDeadline возвращает ближайший срок среди активных таймеров.
func (a *App) nextDeadline() (time.Time, bool) {
	var next time.Time
	consider := func(t time.Time) {
		if !t.IsZero() && (next.IsZero() || t.Before(next)) {
			next = t
		}
	}
	if a.clickPending {
		consider(a.clickDeadline)
	}
	if !a.lastAlt.IsZero() {
		consider(a.lastAlt.Add(a.opts.AltWindow))
	}
	if a.mode == ModeGroqDone {
		consider(a.doneUntil)
	}
	consider(a.nextFrame)
	return next, !next.IsZero()
}

func (a *App) fireDeadlines(now time.Time) {
	if a.clickPending && !now.Before(a.clickDeadline) {
		a.clickPending = false
		a.cooldownUntil = now.Add(a.opts.ClickCooldown)
		a.toggleDictation()
	}
	if !a.lastAlt.IsZero() && now.Sub(a.lastAlt) > a.opts.AltWindow {
		a.lastAlt = time.Time{}
	}
	if a.mode == ModeGroqDone && !now.Before(a.doneUntil) {
		a.setMode(ModeIdle)
	}
	if !a.nextFrame.IsZero() && !now.Before(a.nextFrame) {
		a.renderFrame(now)
	}
}

// setMode переключает режим и всё, что от него зависит: оверлей, трей,
// таймер Done.
func (a *App) setMode(m Mode) {
	if m == a.mode {
		return
	}
	a.log.Debug("смена режима", "from", a.mode, "to", m)
	a.mode = m
	a.current.Store(int32(m))

	now := a.now()
	a.visual.SetState(overlayState(m), now)
	a.deps.Tray.SetState(trayState(m))
	if m == ModeGroqDone {
		a.doneUntil = now.Add(a.opts.DoneHold)
	}
	if m != ModeIdle && !a.overlayOpen {
		a.overlayOpen = true
		a.deps.Overlay.Show()
	}
	a.nextFrame = now
}

func (a *App) renderFrame(now time.Time) {
	mic := a.deps.Recorder.Levels()
	var out audio.Levels
	if a.player != nil {
		out = a.player.OutputLevels()
	}
	f := a.visual.Update(mic, out, now)
	a.deps.Overlay.Render(f)
	// Done заканчивается по первому из двух сроков: таймеру или анимации.
	if a.mode == ModeGroqDone && f.DoneExpired {
		a.setMode(ModeIdle)
		return
	}

	if f.Active {
		a.nextFrame = now.Add(a.opts.FrameInterval)
		return
	}
	a.nextFrame = time.Time{}
	if a.mode == ModeIdle && a.overlayOpen {
		a.overlayOpen = false
		a.deps.Overlay.Hide()
	}
}

// cancel обрабатывает ESC.
func (a *App) cancel() {
	switch {
	case a.mode == ModeGroqRecording:
		a.discardRecording()
		a.setMode(ModeIdle)
	case a.mode.Gemini():
		a.teardown("cancelled by user")
	}
}

func (a *App) shutdown() {
	a.inbox.Close()
	// Сессии из необработанных подключений тоже надо закрыть.
	for {
		m, ok := a.inbox.TryPop()
		if !ok {
			break
		}
		if c, ok := m.(msgConnected); ok && c.sess != nil {
			discardSession(c.sess)
		}
	}
	if a.mode.Gemini() {
		a.teardown("application exit")
	}
	if a.mode == ModeGroqRecording {
		a.discardRecording()
	}
	if a.dictCancel != nil {
		a.dictCancel()
	}
	if a.overlayOpen {
		a.overlayOpen = false
		a.deps.Overlay.Hide()
	}
	a.mode = ModeIdle
	a.current.Store(int32(ModeIdle))
}
