// Package config предоставляет конфигурацию приложения с сохранением в YAML-файл.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Modifier представляет модификатор клавиши.
type Modifier string

const (
	ModCtrl  Modifier = "ctrl"
	ModShift Modifier = "shift"
	ModAlt   Modifier = "alt"
	ModSuper Modifier = "super" // Win/Cmd
)

// Key представляет клавишу.
type Key string

const (
	KeySpace  Key = "space"
	KeyReturn Key = "return"
	KeyTab    Key = "tab"
	KeyD      Key = "d"
	KeyG      Key = "g"
	KeyL      Key = "l"
	KeyR      Key = "r"
	KeyV      Key = "v"
	KeyF1     Key = "f1"
	KeyF2     Key = "f2"
	KeyF3     Key = "f3"
	KeyF4     Key = "f4"
	KeyF5     Key = "f5"
	KeyF6     Key = "f6"
	KeyF7     Key = "f7"
	KeyF8     Key = "f8"
	KeyF9     Key = "f9"
	KeyF10    Key = "f10"
	KeyF11    Key = "f11"
	KeyF12    Key = "f12"
)

// Режимы работы при старте.
const (
	ModeGroq   = "groq"
	ModeGemini = "gemini"
)

// HotkeyConfig хранит одну комбинацию клавиш.
type HotkeyConfig struct {
	Modifiers []Modifier `yaml:"modifiers"`
	Key       Key        `yaml:"key"`
}

// String возвращает строковое представление горячей клавиши.
func (h HotkeyConfig) String() string {
	parts := make([]string, 0, len(h.Modifiers)+1)
	for _, m := range h.Modifiers {
		parts = append(parts, string(m))
	}
	parts = append(parts, string(h.Key))
	return strings.Join(parts, "+")
}

// HotkeysConfig хранит обе горячие клавиши.
type HotkeysConfig struct {
	Dictation HotkeyConfig `yaml:"dictation"`
	Live      HotkeyConfig `yaml:"live"`
}

// GroqConfig хранит настройки распознавания через Groq.
type GroqConfig struct {
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	Language       string  `yaml:"language"`
	Dictionary     string  `yaml:"dictionary"` // передаётся как prompt
	Temperature    float64 `yaml:"temperature"`
	ResponseFormat string  `yaml:"response_format"`
}

// GeminiConfig хранит настройки live-сессии.
type GeminiConfig struct {
	APIKey                   string `yaml:"api_key"`
	Model                    string `yaml:"model"`
	VoiceName                string `yaml:"voice_name"`
	SystemInstruction        string `yaml:"system_instruction"`
	FlushOutboundOnInterrupt bool   `yaml:"flush_outbound_on_interrupt"`
}

// DashboardConfig хранит настройки websocket-дашборда.
type DashboardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ToolsConfig хранит настройки инструментов ассистента.
type ToolsConfig struct {
	Enabled        bool          `yaml:"enabled"`
	MemoryDB       string        `yaml:"memory_db"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	ClaudeTimeout  time.Duration `yaml:"claude_timeout"`
}

// configData структура для сериализации.
type configData struct {
	Mode          string          `yaml:"mode"`
	UILanguage    string          `yaml:"ui_language"`
	Notifications bool            `yaml:"notifications"`
	Groq          GroqConfig      `yaml:"groq"`
	Gemini        GeminiConfig    `yaml:"gemini"`
	Hotkeys       HotkeysConfig   `yaml:"hotkeys"`
	Dashboard     DashboardConfig `yaml:"dashboard"`
	Tools         ToolsConfig     `yaml:"tools"`
}

func defaults() configData {
	return configData{
		Mode:          ModeGroq,
		UILanguage:    "en",
		Notifications: true,
		Groq: GroqConfig{
			Model:          "whisper-large-v3-turbo",
			Language:       "en",
			ResponseFormat: "json",
		},
		Gemini: GeminiConfig{
			Model:     "models/gemini-2.5-flash-native-audio-preview-12-2025",
			VoiceName: "Kore",
		},
		Hotkeys: HotkeysConfig{
			Dictation: HotkeyConfig{Modifiers: []Modifier{ModCtrl, ModShift}, Key: KeySpace},
			Live:      HotkeyConfig{Modifiers: []Modifier{ModCtrl, ModShift}, Key: KeyL},
		},
		Dashboard: DashboardConfig{Enabled: true, Addr: "127.0.0.1:3001"},
		Tools: ToolsConfig{
			Enabled:        true,
			CommandTimeout: 30 * time.Second,
			ClaudeTimeout:  120 * time.Second,
		},
	}
}

// Переменные окружения, подставляемые вместо пустых ключей.
const (
	EnvGroqAPIKey   = "GROQ_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
)

// ErrInvalid оборачивает ошибки проверки значений.
var ErrInvalid = errors.New("config: invalid value")

// Config хранит настройки приложения. Методы безопасны для конкурентного вызова.
type Config struct {
	mu             sync.RWMutex
	data           configData
	path           string
	log            *slog.Logger
	onHotkeyChange func(HotkeysConfig)
}

// DefaultPath возвращает путь к файлу в пользовательском каталоге настроек.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: user config dir: %w", err)
	}
	return filepath.Join(dir, "mavoice", "config.yaml"), nil
}

// Load читает конфигурацию из path. Отсутствующий файл не ошибка: используются
// значения по умолчанию. Пустой path означает DefaultPath.
func Load(path string, log *slog.Logger) (*Config, error) {
	if log == nil {
		log = slog.Default()
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	c := &Config{data: defaults(), path: path, log: log}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info("файл конфигурации не найден, используются значения по умолчанию", "path", path)
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := decode(raw, &c.data); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := c.data.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	log.Debug("конфигурация загружена", "path", path)
	return c, nil
}

func decode(raw []byte, into *configData) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(into); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (d *configData) validate() error {
	if d.Mode != ModeGroq && d.Mode != ModeGemini {
		return fmt.Errorf("%w: mode %q (want %s or %s)", ErrInvalid, d.Mode, ModeGroq, ModeGemini)
	}
	switch d.Groq.ResponseFormat {
	case "json", "text", "verbose_json":
	default:
		return fmt.Errorf("%w: groq.response_format %q", ErrInvalid, d.Groq.ResponseFormat)
	}
	if d.Groq.Temperature < 0 || d.Groq.Temperature > 1 {
		return fmt.Errorf("%w: groq.temperature %v", ErrInvalid, d.Groq.Temperature)
	}
	if d.Tools.CommandTimeout <= 0 || d.Tools.ClaudeTimeout <= 0 {
		return fmt.Errorf("%w: tools timeouts must be positive", ErrInvalid)
	}
	return nil
}

// save сохраняет конфигурацию в файл. Вызывается под c.mu.
func (c *Config) save() {
	data, err := yaml.Marshal(c.data)
	if err != nil {
		c.log.Warn("не удалось сериализовать конфигурацию", "err", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		c.log.Warn("не удалось создать каталог конфигурации", "err", err)
		return
	}
	// Файл содержит API-ключи.
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		c.log.Warn("не удалось сохранить конфигурацию", "path", c.path, "err", err)
	}
}

// Path возвращает путь к файлу конфигурации.
func (c *Config) Path() string {
	return c.path
}

// Mode возвращает режим, в котором приложение стартует.
func (c *Config) Mode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Mode
}

// SetMode устанавливает стартовый режим.
func (c *Config) SetMode(mode string) error {
	if mode != ModeGroq && mode != ModeGemini {
		return fmt.Errorf("%w: mode %q", ErrInvalid, mode)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Mode = mode
	c.save()
	return nil
}

// Groq возвращает настройки Groq. Пустой ключ заменяется GROQ_API_KEY.
func (c *Config) Groq() GroqConfig {
	c.mu.RLock()
	g := c.data.Groq
	c.mu.RUnlock()
	if g.APIKey == "" {
		g.APIKey = os.Getenv(EnvGroqAPIKey)
	}
	return g
}

// SetGroqAPIKey сохраняет ключ Groq.
func (c *Config) SetGroqAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Groq.APIKey = strings.TrimSpace(key)
	c.save()
}

// Gemini возвращает настройки Gemini. Пустой ключ заменяется GEMINI_API_KEY.
func (c *Config) Gemini() GeminiConfig {
	c.mu.RLock()
	g := c.data.Gemini
	c.mu.RUnlock()
	if g.APIKey == "" {
		g.APIKey = os.Getenv(EnvGeminiAPIKey)
	}
	return g
}

// SetGeminiAPIKey сохраняет ключ Gemini.
func (c *Config) SetGeminiAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Gemini.APIKey = strings.TrimSpace(key)
	c.save()
}

// Dashboard возвращает настройки дашборда.
func (c *Config) Dashboard() DashboardConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Dashboard
}

// Tools возвращает настройки инструментов.
func (c *Config) Tools() ToolsConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t := c.data.Tools
	if t.MemoryDB == "" {
		t.MemoryDB = filepath.Join(filepath.Dir(c.path), "memory.db")
	}
	return t
}

// SetNotifications включает/выключает уведомления.
func (c *Config) SetNotifications(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Notifications = enabled
	c.save()
}

// ToggleNotifications переключает состояние уведомлений.
func (c *Config) ToggleNotifications() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Notifications = !c.data.Notifications
	c.save()
	return c.data.Notifications
}

// NotificationsEnabled возвращает true если уведомления включены.
func (c *Config) NotificationsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Notifications
}

// Hotkeys возвращает текущие горячие клавиши.
func (c *Config) Hotkeys() HotkeysConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Hotkeys
}

// SetHotkeys устанавливает горячие клавиши и уведомляет подписчика.
func (c *Config) SetHotkeys(hk HotkeysConfig) {
	c.mu.Lock()
	c.data.Hotkeys = hk
	callback := c.onHotkeyChange
	c.save()
	c.mu.Unlock()

	if callback != nil {
		callback(hk)
	}
}

// OnHotkeyChange устанавливает callback для изменения горячих клавиш.
func (c *Config) OnHotkeyChange(fn func(HotkeysConfig)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onHotkeyChange = fn
}

// UILanguage возвращает язык интерфейса.
func (c *Config) UILanguage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.UILanguage
}

// SetUILanguage устанавливает язык интерфейса.
func (c *Config) SetUILanguage(lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.UILanguage = lang
	c.save()
}

// AvailableModifiers возвращает список доступных модификаторов.
func AvailableModifiers() []Modifier {
	return []Modifier{ModCtrl, ModShift, ModAlt, ModSuper}
}
