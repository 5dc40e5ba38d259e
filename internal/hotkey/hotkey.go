// Package hotkey предоставляет глобальные горячие клавиши.
package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.design/x/hotkey"
	"golang.design/x/hotkey/mainthread"

	"mavoice/internal/config"
)

// debounceInterval защищает от автоповтора клавиши.
const debounceInterval = 300 * time.Millisecond

// ErrUnknownKey возвращается для клавиши, которой нет в таблице.
var ErrUnknownKey = errors.New("hotkey: unknown key")

// Handler обрабатывает одну горячую клавишу.
type Handler struct {
	name    string
	log     *slog.Logger
	onPress func()

	mu      sync.Mutex
	hk      *hotkey.Hotkey
	current config.HotkeyConfig
	stopCh  chan struct{}
}

// New создаёт обработчик горячей клавиши. name попадает только в логи.
func New(name string, onPress func(), log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		name:    name,
		log:     log.With("hotkey", name),
		onPress: onPress,
	}
}

// Register регистрирует горячую клавишу, снимая предыдущую.
func (h *Handler) Register(cfg config.HotkeyConfig) error {
	mods, key, err := resolve(cfg)
	if err != nil {
		return err
	}
	h.log.Info("регистрация горячей клавиши", "combo", cfg.String())

	h.mu.Lock()
	if h.stopCh != nil {
		close(h.stopCh)
		h.stopCh = nil
	}
	oldHk := h.hk
	h.hk = nil
	h.mu.Unlock()

	// Отмена регистрации может зависнуть на некоторых X-серверах.
	if oldHk != nil {
		done := make(chan struct{})
		go func() {
			_ = oldHk.Unregister()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(500 * time.Millisecond):
			h.log.Warn("таймаут отмены регистрации")
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("hotkey: register %s: %w", cfg, err)
	}
	h.hk = hk
	h.current = cfg
	h.stopCh = make(chan struct{})

	h.log.Info("горячая клавиша зарегистрирована", "combo", cfg.String())
	go h.listen(hk, h.stopCh)
	return nil
}

func (h *Handler) listen(hk *hotkey.Hotkey, stopCh chan struct{}) {
	var lastKeydown time.Time
	for {
		select {
		case <-stopCh:
			return
		case _, ok := <-hk.Keydown():
			if !ok {
				return
			}
			now := time.Now()
			if now.Sub(lastKeydown) < debounceInterval {
				continue
			}
			lastKeydown = now
			if h.onPress != nil {
				h.onPress()
			}
		case _, ok := <-hk.Keyup():
			if !ok {
				return
			}
			// Режим переключения, отпускание не важно.
		}
	}
}

// Unregister отменяет регистрацию горячей клавиши.
func (h *Handler) Unregister() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopCh != nil {
		close(h.stopCh)
		h.stopCh = nil
	}
	if h.hk != nil {
		err := h.hk.Unregister()
		h.hk = nil
		return err
	}
	return nil
}

// Current возвращает текущую зарегистрированную горячую клавишу.
func (h *Handler) Current() config.HotkeyConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Bindings держит обе горячие клавиши приложения.
type Bindings struct {
	Dictation *Handler
	Live      *Handler
}

// NewBindings создаёт обработчики для диктовки и live-режима.
func NewBindings(onDictation, onLive func(), log *slog.Logger) *Bindings {
	return &Bindings{
		Dictation: New("dictation", onDictation, log),
		Live:      New("live", onLive, log),
	}
}

// Register регистрирует обе клавиши. Ошибка одной не мешает второй.
func (b *Bindings) Register(cfg config.HotkeysConfig) error {
	return errors.Join(
		b.Dictation.Register(cfg.Dictation),
		b.Live.Register(cfg.Live),
	)
}

// Unregister снимает обе клавиши.
func (b *Bindings) Unregister() error {
	return errors.Join(b.Dictation.Unregister(), b.Live.Unregister())
}

// RunOnMainThread запускает функцию в главном потоке (требование для macOS).
func RunOnMainThread(fn func()) {
	mainthread.Init(fn)
}

// resolve переводит настройку в модификаторы и клавишу библиотеки.
func resolve(cfg config.HotkeyConfig) ([]hotkey.Modifier, hotkey.Key, error) {
	key, ok := keyMap[cfg.Key]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownKey, cfg.Key)
	}
	mods := make([]hotkey.Modifier, 0, len(cfg.Modifiers))
	for _, m := range cfg.Modifiers {
		if mod, ok := modifierMap[m]; ok {
			mods = append(mods, mod)
		}
	}
	return mods, key, nil
}

// modifierMap определён в modifiers_<os>.go.

// keyMap маппинг config.Key -> hotkey.Key
var keyMap = map[config.Key]hotkey.Key{
	config.KeySpace:  hotkey.KeySpace,
	config.KeyReturn: hotkey.KeyReturn,
	config.KeyTab:    hotkey.KeyTab,
	config.KeyD:      hotkey.KeyD,
	config.KeyG:      hotkey.KeyG,
	config.KeyL:      hotkey.KeyL,
	config.KeyR:      hotkey.KeyR,
	config.KeyV:      hotkey.KeyV,
	config.KeyF1:     hotkey.KeyF1,
	config.KeyF2:     hotkey.KeyF2,
	config.KeyF3:     hotkey.KeyF3,
	config.KeyF4:     hotkey.KeyF4,
	config.KeyF5:     hotkey.KeyF5,
	config.KeyF6:     hotkey.KeyF6,
	config.KeyF7:     hotkey.KeyF7,
	config.KeyF8:     hotkey.KeyF8,
	config.KeyF9:     hotkey.KeyF9,
	config.KeyF10:    hotkey.KeyF10,
	config.KeyF11:    hotkey.KeyF11,
	config.KeyF12:    hotkey.KeyF12,
}
