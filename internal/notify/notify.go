// Package notify предоставляет системные уведомления.
package notify

import (
	"log/slog"
	"sync/atomic"

	"github.com/gen2brain/beeep"

	"mavoice/internal/i18n"
)

// maxBody - сколько символов текста показывать в уведомлении.
const maxBody = 100

// Notifier отправляет системные уведомления.
type Notifier struct {
	enabled atomic.Bool
	log     *slog.Logger
	send    func(title, message, icon string) error
}

// New создаёт новый Notifier.
func New(enabled bool, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	n := &Notifier{log: log, send: beeep.Notify}
	n.enabled.Store(enabled)
	return n
}

// SetEnabled включает/выключает уведомления.
func (n *Notifier) SetEnabled(enabled bool) {
	n.enabled.Store(enabled)
}

// Success показывает уведомление об успешном распознавании.
func (n *Notifier) Success(text string) {
	n.notify(i18n.T("notify_done"), truncate(text))
}

// Empty показывает уведомление о пустом результате.
func (n *Notifier) Empty() {
	n.notify(i18n.T("notify_empty"), i18n.T("notify_empty_hint"))
}

// Error показывает уведомление об ошибке.
func (n *Notifier) Error(msg string) {
	n.notify(i18n.T("notify_error"), truncate(msg))
}

func (n *Notifier) notify(title, message string) {
	if !n.enabled.Load() {
		return
	}
	// Ошибки уведомлений не критичны.
	if err := n.send(i18n.T("app_name")+": "+title, message, ""); err != nil {
		n.log.Debug("уведомление не показано", "err", err)
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxBody {
		return s
	}
	return string(r[:maxBody]) + "..."
}
