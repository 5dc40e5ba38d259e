package app

import (
	"context"
	"encoding/json"

	"mavoice/internal/dashboard"
	"mavoice/internal/live"
)

func (a *App) toggleLive() {
	switch {
	case a.mode.Gemini():
		a.teardown("disconnected by user")
		return
	case a.mode == ModeGroqRecording:
		// Запись ради live-сессии не распознаётся.
		a.discardRecording()
	}
	a.connect()
}

// connect запускает подключение. Идущее распознавание не трогаем: его текст
// будет вставлен, когда придёт.
func (a *App) connect() {
	a.gen++
	gen := a.gen
	ctx, cancel := context.WithCancel(a.ctx)
	a.connCancel = cancel
	a.setMode(ModeGeminiConnecting)

	a.log.Info("подключение live-сессии", "gen", gen)
	go func() {
		sess, err := a.deps.Dial(ctx)
		if !a.inbox.Push(msgConnected{gen: gen, sess: sess, err: err}) && sess != nil {
			discardSession(sess)
		}
	}()
}

func (a *App) onConnected(m msgConnected) {
	if m.gen != a.gen || a.mode != ModeGeminiConnecting {
		if m.sess != nil {
			a.log.Debug("устаревшее подключение закрыто", "gen", m.gen)
			discardSession(m.sess)
		}
		return
	}
	if a.connCancel != nil {
		a.connCancel()
		a.connCancel = nil
	}
	if m.err != nil {
		a.log.Error("не удалось подключиться", "err", m.err)
		a.deps.Notifier.Error(m.err.Error())
		a.deps.Dashboard.Broadcast("voice:close", dashboard.Payload{"reason": m.err.Error()})
		a.gen++
		a.setMode(ModeIdle)
		return
	}

	a.sess = m.sess
	a.log.Info("live-сессия открыта, ждём готовности", "session_id", m.sess.ID())
	go a.pumpEvents(m.gen, m.sess)
}

// discardSession закрывает сессию, которую никто не слушает, и вычитывает
// её события до конца.
func discardSession(s Session) {
	s.Close()
	go func() {
		for range s.Events() {
		}
	}()
}

// pumpEvents переносит события сессии в inbox. Канал закрывается сессией
// после терминального события.
func (a *App) pumpEvents(gen uint64, sess Session) {
	for ev := range sess.Events() {
		a.post(msgLiveEvent{gen: gen, ev: ev})
	}
}

func (a *App) onLiveEvent(m msgLiveEvent) {
	if m.gen != a.gen || a.sess == nil {
		return
	}
	switch ev := m.ev.(type) {
	case live.Ready:
		a.onReady()
	case live.Audio:
		if a.player == nil {
			return
		}
		a.player.Enqueue(ev.PCM)
		if a.mode == ModeGeminiListening {
			a.setMode(ModeGeminiAISpeaking)
			a.deps.Dashboard.Broadcast("voice:speaking", nil)
		}
	case live.Text:
		a.deps.Dashboard.Broadcast("voice:text", dashboard.Payload{"text": ev.Text})
	case live.TurnComplete:
		if a.mode == ModeGeminiAISpeaking {
			a.setMode(ModeGeminiListening)
			a.deps.Dashboard.Broadcast("voice:listening", nil)
		}
	case live.Interrupted:
		a.onInterrupted()
	case live.ToolCall:
		for _, call := range ev.Calls {
			a.dispatchTool(call)
		}
	case live.ToolCallCancellation:
		for _, id := range ev.IDs {
			if cancel, ok := a.pendingTool[id]; ok {
				cancel()
				delete(a.pendingTool, id)
				a.log.Info("вызов инструмента отменён", "call_id", id)
			}
		}
	case live.Error:
		a.deps.Notifier.Error(ev.Message())
		a.teardown(ev.Message())
	case live.Closed:
		a.teardown(ev.Reason)
	}
}

// onReady включает двусторонний звук: микрофон пишет прямо в сессию.
func (a *App) onReady() {
	if a.mode != ModeGeminiConnecting {
		return
	}
	player, err := a.deps.NewPlayer()
	if err != nil {
		a.log.Error("не удалось открыть вывод звука", "err", err)
		a.deps.Notifier.Error(err.Error())
		a.teardown("audio output unavailable")
		return
	}
	a.player = player

	a.deps.Recorder.SetStreamingSink(a.sess.SendAudio)
	if err := a.deps.Recorder.Start(); err != nil {
		a.log.Error("не удалось начать запись", "err", err)
		a.deps.Notifier.Error(err.Error())
		a.teardown("audio input unavailable")
		return
	}
	a.setMode(ModeGeminiListening)
	a.deps.Dashboard.Broadcast("voice:open", dashboard.Payload{"sessionId": a.sess.ID()})
	a.deps.Dashboard.Broadcast("voice:listening", nil)
}

// onInterrupted: пользователь перебил ассистента.
func (a *App) onInterrupted() {
	if a.player != nil {
		a.player.Clear()
	}
	if a.opts.FlushOutboundOnInterrupt {
		n := a.sess.DropPendingAudio()
		a.log.Debug("неотправленный звук выброшен", "chunks", n)
	}
	if a.mode == ModeGeminiAISpeaking {
		a.setMode(ModeGeminiListening)
	}
	a.deps.Dashboard.Broadcast("voice:interrupted", nil)
}

func (a *App) dispatchTool(call live.FunctionCall) {
	if _, dup := a.pendingTool[call.ID]; dup {
		a.log.Warn("повторный вызов инструмента проигнорирован", "call_id", call.ID)
		return
	}
	ctx, cancel := context.WithTimeout(a.ctx, a.opts.ToolTimeout)
	a.pendingTool[call.ID] = cancel

	a.log.Info("вызов инструмента", "tool", call.Name, "call_id", call.ID)
	a.deps.Dashboard.Broadcast("voice:tool_call", dashboard.Payload{
		"chatId":   call.ID,
		"toolName": call.Name,
		"input":    call.Args,
	})

	gen := a.gen
	go func() {
		var result json.RawMessage
		if a.deps.Tools == nil {
			result = json.RawMessage(`{"error":"tools are disabled"}`)
		} else {
			result = a.deps.Tools.Execute(ctx, call.Name, call.Args)
		}
		a.post(msgToolResult{gen: gen, id: call.ID, name: call.Name, result: result})
	}()
}

// onToolResult отправляет ответ, только если вызов ещё не отменён.
func (a *App) onToolResult(m msgToolResult) {
	cancel, ok := a.pendingTool[m.id]
	if m.gen != a.gen || !ok {
		a.log.Debug("результат отменённого вызова отброшен", "call_id", m.id)
		return
	}
	cancel()
	delete(a.pendingTool, m.id)

	a.sess.SendToolResponse(m.id, m.name, m.result)
	a.deps.Dashboard.Broadcast("voice:tool_result", dashboard.Payload{
		"chatId":   m.id,
		"toolName": m.name,
	})
}

// teardown закрывает live-сессию в строгом порядке: сначала микрофон
// перестаёт писать в сессию, потом закрывается сама сессия и вывод.
func (a *App) teardown(reason string) {
	a.deps.Recorder.SetStreamingSink(nil)
	if a.deps.Recorder.IsRecording() {
		a.discardRecording()
	}
	if a.sess != nil {
		a.sess.Close()
		a.sess = nil
	}
	if a.player != nil {
		a.player.Clear()
		a.player.Close()
		a.player = nil
	}
	for id, cancel := range a.pendingTool {
		cancel()
		delete(a.pendingTool, id)
	}
	if a.connCancel != nil {
		a.connCancel()
		a.connCancel = nil
	}
	a.gen++

	a.log.Info("live-сессия закрыта", "reason", reason)
	a.deps.Dashboard.Broadcast("voice:close", dashboard.Payload{"reason": reason})
	a.setMode(ModeIdle)
}
