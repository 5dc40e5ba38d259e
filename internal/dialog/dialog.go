// Package dialog предоставляет GUI-диалоги приложения.
package dialog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ncruces/zenity"

	"mavoice/internal/i18n"
)

// Service - сервис, для которого запрашивается ключ.
type Service string

const (
	Groq   Service = "groq"
	Gemini Service = "gemini"
)

// ErrCancelled возвращается, если пользователь закрыл диалог.
var ErrCancelled = errors.New("dialog: cancelled")

// ErrEmpty возвращается для пустого ввода.
var ErrEmpty = errors.New("dialog: empty input")

// entry подменяется в тестах.
var entry = zenity.Entry

// AskAPIKey запрашивает API-ключ скрытым полем ввода.
func AskAPIKey(s Service) (string, error) {
	prompt := i18n.T("dialog_groq_key")
	if s == Gemini {
		prompt = i18n.T("dialog_gemini_key")
	}

	key, err := entry(prompt, zenity.Title(i18n.T("dialog_key_title")), zenity.HideText())
	switch {
	case errors.Is(err, zenity.ErrCanceled):
		return "", ErrCancelled
	case err != nil:
		return "", fmt.Errorf("dialog: %s key: %w", s, err)
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmpty
	}
	return key, nil
}

// ShowError показывает сообщение об ошибке.
func ShowError(title, message string) {
	_ = zenity.Error(message, zenity.Title(title), zenity.ErrorIcon)
}
