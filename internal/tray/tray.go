// Package tray предоставляет системный трей с меню.
package tray

import (
	"github.com/getlantern/systray"

	"mavoice/embedded"
	"mavoice/internal/i18n"
)

// State представляет состояние приложения для отображения в трее.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StateLive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateLive:
		return "live"
	}
	return "unknown"
}

// view - иконка и ключ подписи для состояния.
type view struct {
	icon  []byte
	label string
}

func (s State) view() view {
	switch s {
	case StateRecording:
		return view{embedded.IconRecording, "tray_recording"}
	case StateProcessing:
		return view{embedded.IconProcessing, "tray_processing"}
	case StateLive:
		return view{embedded.IconLive, "tray_live"}
	}
	return view{embedded.IconIdle, "tray_ready"}
}

// Callbacks содержит обработчики событий меню.
type Callbacks struct {
	OnDictation           func()
	OnLive                func()
	OnNotificationsToggle func() bool
	OnQuit                func()
}

// Tray управляет иконкой в системном трее.
type Tray struct {
	callbacks     Callbacks
	notifications bool

	status    *systray.MenuItem
	dictation *systray.MenuItem
	live      *systray.MenuItem
	notifyOn  *systray.MenuItem
	quitBtn   *systray.MenuItem
}

// New создаёт новый Tray.
func New(callbacks Callbacks, notifications bool) *Tray {
	return &Tray{
		callbacks:     callbacks,
		notifications: notifications,
	}
}

// Run запускает системный трей. Блокирующая функция, вызывать из главного
// потока.
func (t *Tray) Run(onReady func()) {
	systray.Run(func() {
		t.onReady()
		if onReady != nil {
			onReady()
		}
	}, func() {})
}

func (t *Tray) onReady() {
	systray.SetIcon(embedded.IconIdle)
	systray.SetTitle(i18n.T("app_name"))
	systray.SetTooltip(i18n.T("app_tooltip"))

	// Статус
	t.status = systray.AddMenuItem(i18n.T("tray_ready"), "")
	t.status.Disable()

	systray.AddSeparator()

	t.dictation = systray.AddMenuItem(i18n.T("tray_dictation"), i18n.T("tray_dictation_hint"))
	t.live = systray.AddMenuItem(i18n.T("tray_live_toggle"), i18n.T("tray_live_toggle_hint"))

	systray.AddSeparator()

	t.notifyOn = systray.AddMenuItemCheckbox(i18n.T("tray_notifications"), i18n.T("tray_notifications_hint"), t.notifications)

	systray.AddSeparator()

	t.quitBtn = systray.AddMenuItem(i18n.T("tray_quit"), i18n.T("tray_quit_hint"))

	go t.handleMenuEvents()
}

func (t *Tray) handleMenuEvents() {
	for {
		select {
		case <-t.dictation.ClickedCh:
			if t.callbacks.OnDictation != nil {
				t.callbacks.OnDictation()
			}

		case <-t.live.ClickedCh:
			if t.callbacks.OnLive != nil {
				t.callbacks.OnLive()
			}

		case <-t.notifyOn.ClickedCh:
			if t.callbacks.OnNotificationsToggle != nil {
				if t.callbacks.OnNotificationsToggle() {
					t.notifyOn.Check()
				} else {
					t.notifyOn.Uncheck()
				}
			}

		case <-t.quitBtn.ClickedCh:
			if t.callbacks.OnQuit != nil {
				t.callbacks.OnQuit()
			}
			systray.Quit()
			return
		}
	}
}

// SetState устанавливает состояние приложения и обновляет иконку.
func (t *Tray) SetState(state State) {
	v := state.view()
	systray.SetIcon(v.icon)
	systray.SetTooltip(i18n.T("app_name") + " - " + i18n.T(v.label))
	if t.status != nil {
		t.status.SetTitle(i18n.T(v.label))
	}
}

// Quit закрывает системный трей.
func (t *Tray) Quit() {
	systray.Quit()
}
