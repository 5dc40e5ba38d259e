// Package input предоставляет ввод распознанного текста в окно, которое было
// активно в момент начала записи.
package input

import "log/slog"

// Target идентифицирует окно назначения. Пустое значение означает окно,
// активное в момент вставки.
type Target string

// Injector захватывает активное окно и вставляет в него текст.
type Injector interface {
	// ActiveWindow возвращает текущее активное окно. Вызывается до показа
	// оверлея, чтобы тот не перехватил фокус.
	ActiveWindow() (Target, error)
	// Inject вставляет текст в target.
	Inject(text string, target Target) error
}

// New создаёт платформо-специфичный Injector.
func New(log *slog.Logger) (Injector, error) {
	if log == nil {
		log = slog.Default()
	}
	return newInjector(log)
}
