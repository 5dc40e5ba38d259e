package app

import (
	"time"

	"mavoice/internal/overlay"
	"mavoice/internal/tray"
)

// onClick: одиночный клик переключает диктовку, двойной - live-режим.
// Действие одиночного клика откладывается до конца окна двойного.
func (a *App) onClick(at time.Time) {
	if at.Before(a.cooldownUntil) {
		return
	}
	if a.clickPending && at.Before(a.clickDeadline) {
		a.clickPending = false
		a.cooldownUntil = at.Add(a.opts.ClickCooldown)
		a.toggleLive()
		return
	}
	a.clickPending = true
	a.clickDeadline = at.Add(a.opts.ClickWindow)
}

// onAlt: двойное нажатие Alt переключает live-режим.
func (a *App) onAlt(at time.Time) {
	if !a.lastAlt.IsZero() && at.Sub(a.lastAlt) <= a.opts.AltWindow {
		a.lastAlt = time.Time{}
		a.toggleLive()
		return
	}
	a.lastAlt = at
}

func overlayState(m Mode) overlay.State {
	switch m {
	case ModeGroqRecording:
		return overlay.StateRecording
	case ModeGroqProcessing, ModeGeminiConnecting:
		return overlay.StateProcessing
	case ModeGroqDone:
		return overlay.StateDone
	case ModeGeminiListening:
		return overlay.StateListening
	case ModeGeminiAISpeaking:
		return overlay.StateAISpeaking
	}
	return overlay.StateIdle
}

func trayState(m Mode) tray.State {
	switch m {
	case ModeGroqRecording:
		return tray.StateRecording
	case ModeGroqProcessing, ModeGeminiConnecting:
		return tray.StateProcessing
	case ModeGeminiListening, ModeGeminiAISpeaking:
		return tray.StateLive
	}
	return tray.StateIdle
}
