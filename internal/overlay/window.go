package overlay

import (
	"image/color"
	"sync"
	"time"

	"gioui.org/app"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/unit"
	"gioui.org/widget/material"
)

// Config holds window configuration.
type Config struct {
	Width     int         // Window width in pixels
	Height    int         // Window height in pixels
	BGColor   color.NRGBA // Background color
	TextColor color.NRGBA // Status text color
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Width:     240,
		Height:    72,
		BGColor:   color.NRGBA{R: 22, G: 22, B: 28, A: 235},
		TextColor: color.NRGBA{R: 235, G: 235, B: 240, A: 255},
	}
}

// Window is the floating overlay. It draws whatever Frame it was last given;
// the caller drives the frame rate through Render.
type Window struct {
	mu     sync.Mutex
	config Config
	frame  Frame
	shown  time.Time

	onClick  func()
	onAlt    func()
	onCancel func()

	window  *app.Window
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates an overlay window. It stays hidden until Show.
func New(cfg Config) *Window {
	return &Window{config: cfg}
}

// OnClick sets the callback for a primary-button press on the overlay.
func (w *Window) OnClick(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onClick = fn
}

// OnAltPress sets the callback for an Alt key press while the overlay has focus.
func (w *Window) OnAltPress(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onAlt = fn
}

// OnCancel sets the callback for ESC.
func (w *Window) OnCancel(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onCancel = fn
}

// Show displays the overlay (non-blocking).
func (w *Window) Show() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.shown = time.Now()
	w.window = new(app.Window)

	go w.runEventLoop(w.window, w.stopCh, w.doneCh)
}

// Hide closes the overlay (non-blocking). The old event loop winds down on
// its own, so a Show right after Hide opens a fresh window.
func (w *Window) Hide() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
	w.stopCh = nil
}

// Render stores f and schedules a redraw.
func (w *Window) Render(f Frame) {
	w.mu.Lock()
	w.frame = f
	win := w.window
	running := w.running
	w.mu.Unlock()

	if running && win != nil {
		win.Invalidate()
	}
}

const windowTitle = "mavoice"

func (w *Window) runEventLoop(win *app.Window, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	win.Option(
		app.Title(windowTitle),
		app.Size(unit.Dp(w.config.Width), unit.Dp(w.config.Height)),
		app.Decorated(false),
	)

	go positionWindow(windowTitle, w.config.Width, w.config.Height)

	go func() {
		select {
		case <-stopCh:
			win.Perform(system.ActionClose)
		case <-doneCh:
		}
	}()

	th := material.NewTheme()
	var ops op.Ops
	for {
		switch e := win.Event().(type) {
		case app.DestroyEvent:
			w.mu.Lock()
			if w.window == win {
				w.window = nil
				w.running = false
			}
			w.mu.Unlock()
			return
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)

			w.mu.Lock()
			frame := w.frame
			shown := w.shown
			w.mu.Unlock()

			w.handleInput(gtx)
			drawFrame(gtx, th, frame, time.Since(shown), w.config)
			e.Frame(gtx.Ops)
		}
	}
}

// handleInput drains pointer and key events and forwards them to the callbacks.
// Callbacks run on their own goroutine so the event loop never waits on them.
func (w *Window) handleInput(gtx layout.Context) {
	w.mu.Lock()
	onClick, onAlt, onCancel := w.onClick, w.onAlt, w.onCancel
	w.mu.Unlock()

	for {
		ev, ok := gtx.Event(pointer.Filter{Target: w, Kinds: pointer.Press})
		if !ok {
			break
		}
		if e, ok := ev.(pointer.Event); ok && e.Buttons == pointer.ButtonPrimary && onClick != nil {
			go onClick()
		}
	}

	for {
		ev, ok := gtx.Event(
			key.Filter{Name: key.NameAlt},
			key.Filter{Name: key.NameEscape},
		)
		if !ok {
			break
		}
		e, ok := ev.(key.Event)
		if !ok || e.State != key.Press {
			continue
		}
		switch e.Name {
		case key.NameAlt:
			if onAlt != nil {
				go onAlt()
			}
		case key.NameEscape:
			if onCancel != nil {
				go onCancel()
			}
		}
	}

	area := clip.Rect{Max: gtx.Constraints.Max}.Push(gtx.Ops)
	event.Op(gtx.Ops, w)
	area.Pop()
}
