// Package i18n provides internationalization support.
package i18n

import "sync"

// Language represents a UI language.
type Language string

const (
	RU Language = "ru"
	EN Language = "en"
)

var (
	mu      sync.RWMutex
	current = EN // Default language
)

// Translations for all supported languages.
var translations = map[Language]map[string]string{
	RU: {
		// App
		"app_name":    "mavoice",
		"app_tooltip": "mavoice - голосовой ввод и ассистент",

		// Tray menu
		"tray_ready":              "Готов к работе",
		"tray_recording":          "Запись...",
		"tray_processing":         "Распознавание...",
		"tray_live":               "Разговор с ассистентом",
		"tray_dictation":          "Диктовка",
		"tray_dictation_hint":     "Начать или закончить запись",
		"tray_live_toggle":        "Ассистент",
		"tray_live_toggle_hint":   "Подключить или отключить голосового ассистента",
		"tray_notifications":      "Уведомления",
		"tray_notifications_hint": "Показывать уведомления",
		"tray_quit":               "Выход",
		"tray_quit_hint":          "Закрыть приложение",

		// Overlay
		"overlay_recording":  "Запись",
		"overlay_processing": "Обработка...",
		"overlay_done":       "Готово",
		"overlay_listening":  "Слушаю",
		"overlay_speaking":   "Ассистент говорит",

		// Notifications
		"notify_done":       "Готово",
		"notify_empty":      "Не удалось распознать",
		"notify_empty_hint": "Попробуйте ещё раз",
		"notify_error":      "Ошибка",

		// Dialogs
		"dialog_groq_key":   "Введите API-ключ Groq",
		"dialog_gemini_key": "Введите API-ключ Gemini",
		"dialog_key_title":  "mavoice: API-ключ",

		// Errors
		"error_hotkey_register": "Не удалось зарегистрировать горячую клавишу",
		"error_no_key":          "API-ключ не задан",
	},

	EN: {
		// App
		"app_name":    "mavoice",
		"app_tooltip": "mavoice - voice input and assistant",

		// Tray menu
		"tray_ready":              "Ready",
		"tray_recording":          "Recording...",
		"tray_processing":         "Processing...",
		"tray_live":               "Talking to assistant",
		"tray_dictation":          "Dictation",
		"tray_dictation_hint":     "Start or stop recording",
		"tray_live_toggle":        "Assistant",
		"tray_live_toggle_hint":   "Connect or disconnect the voice assistant",
		"tray_notifications":      "Notifications",
		"tray_notifications_hint": "Show notifications",
		"tray_quit":               "Quit",
		"tray_quit_hint":          "Close application",

		// Overlay
		"overlay_recording":  "Recording",
		"overlay_processing": "Processing...",
		"overlay_done":       "Done",
		"overlay_listening":  "Listening",
		"overlay_speaking":   "Assistant speaking",

		// Notifications
		"notify_done":       "Done",
		"notify_empty":      "Could not recognize",
		"notify_empty_hint": "Please try again",
		"notify_error":      "Error",

		// Dialogs
		"dialog_groq_key":   "Enter your Groq API key",
		"dialog_gemini_key": "Enter your Gemini API key",
		"dialog_key_title":  "mavoice: API key",

		// Errors
		"error_hotkey_register": "Could not register hotkey",
		"error_no_key":          "API key is not set",
	},
}

// T returns the translation for the given key.
func T(key string) string {
	mu.RLock()
	defer mu.RUnlock()

	if strings, ok := translations[current]; ok {
		if s, ok := strings[key]; ok {
			return s
		}
	}
	// Fallback to key itself
	return key
}

// SetLanguage sets the current UI language. Unknown languages fall back to EN.
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := translations[lang]; !ok {
		lang = EN
	}
	current = lang
}

// GetLanguage returns the current UI language.
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// AvailableLanguages returns list of supported languages.
func AvailableLanguages() []Language {
	return []Language{RU, EN}
}
