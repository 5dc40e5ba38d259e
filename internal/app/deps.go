package app

import (
	"context"
	"encoding/json"

	"mavoice/internal/audio"
	"mavoice/internal/dashboard"
	"mavoice/internal/input"
	"mavoice/internal/live"
	"mavoice/internal/overlay"
	"mavoice/internal/tray"
)

// Recorder захватывает микрофон. Реализуется *audio.Recorder.
type Recorder interface {
	Start() error
	Stop() ([]byte, error)
	SetStreamingSink(audio.StreamingSink)
	Levels() audio.Levels
	IsRecording() bool
}

// Player воспроизводит ответ ассистента. Реализуется *audio.Player.
type Player interface {
	Enqueue(pcm []byte)
	Clear()
	OutputLevels() audio.Levels
	Close()
}

// Session - открытая live-сессия. Реализуется *live.Session.
type Session interface {
	ID() string
	Events() <-chan live.Event
	SendAudio(pcm []byte)
	SendToolResponse(id, name string, response json.RawMessage)
	DropPendingAudio() int
	Close()
}

// Transcriber распознаёт WAV. Реализуется *groq.Client.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// ToolExecutor выполняет вызовы функций ассистента. Реализуется *tools.Executor.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args json.RawMessage) json.RawMessage
}

// Broadcaster рассылает события дашборду. Реализуется *dashboard.Hub.
type Broadcaster interface {
	Broadcast(typ string, p dashboard.Payload)
}

// Notifier показывает системные уведомления. Реализуется *notify.Notifier.
type Notifier interface {
	Success(text string)
	Empty()
	Error(msg string)
}

// Renderer - окно оверлея. Реализуется *overlay.Window.
type Renderer interface {
	Show()
	Hide()
	Render(overlay.Frame)
}

// StatusView отображает состояние в трее. Реализуется *tray.Tray.
type StatusView interface {
	SetState(tray.State)
}

// Deps - внешние компоненты оркестратора. Обязательны Recorder, NewPlayer,
// Transcriber, Dial и Injector; остальные могут быть nil.
type Deps struct {
	Recorder    Recorder
	NewPlayer   func() (Player, error)
	Transcriber Transcriber
	// Dial открывает live-сессию. Конфигурация сессии (голос, инструкция,
	// инструменты) задаётся при сборке.
	Dial     func(ctx context.Context) (Session, error)
	Injector input.Injector
	Tools    ToolExecutor

	Dashboard Broadcaster
	Notifier  Notifier
	Overlay   Renderer
	Tray      StatusView
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, dashboard.Payload) {}

type noopNotifier struct{}

func (noopNotifier) Success(string) {}
func (noopNotifier) Empty()         {}
func (noopNotifier) Error(string)   {}

type noopRenderer struct{}

func (noopRenderer) Show()                {}
func (noopRenderer) Hide()                {}
func (noopRenderer) Render(overlay.Frame) {}

type noopStatus struct{}

func (noopStatus) SetState(tray.State) {}
