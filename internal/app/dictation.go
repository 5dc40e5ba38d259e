package app

import (
	"context"
	"errors"

	"mavoice/internal/audio"
	"mavoice/internal/dashboard"
)

func (a *App) toggleDictation() {
	switch {
	case a.mode == ModeGroqRecording:
		a.stopDictation()
	case a.mode == ModeGroqProcessing:
		a.log.Debug("распознавание ещё идёт, переключение проигнорировано")
	case a.mode.Gemini():
		a.teardown("switched to dictation")
		a.startDictation()
	default:
		a.startDictation()
	}
}

// startDictation запоминает активное окно до показа оверлея, иначе фокус
// уже будет у оверлея.
func (a *App) startDictation() {
	target, err := a.deps.Injector.ActiveWindow()
	if err != nil {
		a.log.Warn("не удалось определить активное окно", "err", err)
	}
	a.target = target

	a.deps.Recorder.SetStreamingSink(nil)
	if err := a.deps.Recorder.Start(); err != nil {
		a.log.Error("не удалось начать запись", "err", err)
		a.deps.Notifier.Error(err.Error())
		a.setMode(ModeIdle)
		return
	}
	a.setMode(ModeGroqRecording)
	a.deps.Dashboard.Broadcast("groq:start", nil)
}

func (a *App) stopDictation() {
	wav, err := a.deps.Recorder.Stop()
	if err != nil {
		if errors.Is(err, audio.ErrEmptyCapture) {
			a.log.Info("запись пустая")
			a.deps.Notifier.Empty()
		} else {
			a.log.Error("ошибка остановки записи", "err", err)
			a.deps.Notifier.Error(err.Error())
		}
		a.setMode(ModeIdle)
		return
	}
	a.setMode(ModeGroqProcessing)

	a.dictSeq++
	seq, target := a.dictSeq, a.target
	ctx, cancel := context.WithCancel(a.ctx)
	a.dictCancel = cancel

	a.log.Info("отправка на распознавание", "bytes", len(wav))
	go func() {
		defer cancel()
		m := msgTranscribed{seq: seq, target: target}
		m.text, m.err = a.deps.Transcriber.Transcribe(ctx, wav)
		if m.err == nil && m.text != "" {
			m.injectErr = a.deps.Injector.Inject(m.text, target)
		}
		a.post(m)
	}()
}

// discardRecording останавливает захват без распознавания.
func (a *App) discardRecording() {
	if _, err := a.deps.Recorder.Stop(); err != nil && !errors.Is(err, audio.ErrEmptyCapture) {
		a.log.Debug("остановка отброшенной записи", "err", err)
	}
	a.log.Info("запись отброшена")
}

// onTranscribed применяется и к запоздавшему результату: текст уже вставлен,
// но режим меняется, только если мы всё ещё ждём именно его.
func (a *App) onTranscribed(m msgTranscribed) {
	if m.seq == a.dictSeq {
		a.dictCancel = nil
	}
	current := m.seq == a.dictSeq && a.mode == ModeGroqProcessing

	switch {
	case m.err != nil:
		a.log.Error("ошибка распознавания", "err", m.err)
		a.deps.Dashboard.Broadcast("groq:error", dashboard.Payload{"error": m.err.Error()})
		if current {
			a.deps.Notifier.Error(m.err.Error())
			a.setMode(ModeIdle)
		}
	case m.text == "":
		a.log.Info("распознан пустой текст")
		if current {
			a.deps.Notifier.Empty()
			a.setMode(ModeIdle)
		}
	default:
		if m.injectErr != nil {
			a.log.Error("ошибка вставки текста", "err", m.injectErr, "target", m.target)
		}
		a.log.Info("текст распознан", "chars", len([]rune(m.text)), "late", !current)
		a.deps.Dashboard.Broadcast("groq:complete", dashboard.Payload{"text": m.text})
		if current {
			if m.injectErr != nil {
				a.deps.Notifier.Error(m.injectErr.Error())
			} else {
				a.deps.Notifier.Success(m.text)
			}
			a.setMode(ModeGroqDone)
		}
	}
}
