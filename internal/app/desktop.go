package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"mavoice/internal/audio"
	"mavoice/internal/config"
	"mavoice/internal/dashboard"
	"mavoice/internal/dialog"
	"mavoice/internal/groq"
	"mavoice/internal/hotkey"
	"mavoice/internal/i18n"
	"mavoice/internal/input"
	"mavoice/internal/live"
	"mavoice/internal/notify"
	"mavoice/internal/overlay"
	"mavoice/internal/tools"
	"mavoice/internal/tray"
)

// Desktop - приложение, собранное из настоящих устройств и сервисов.
type Desktop struct {
	cfg *config.Config
	log *slog.Logger

	app      *App
	pa       *audio.PortAudio
	recorder *audio.Recorder
	notifier *notify.Notifier
	tray     *tray.Tray
	overlay  *overlay.Window
	hotkeys  *hotkey.Bindings
	hub      *dashboard.Hub

	closeTools    func() error
	autoConnect   bool
	dashboardAddr string
	stop          context.CancelFunc
}

// DesktopOptions - параметры запуска из командной строки.
type DesktopOptions struct {
	// AutoConnect сразу подключает live-сессию после старта.
	AutoConnect bool
	// DashboardAddr заменяет адрес дашборда из конфига на этот запуск.
	DashboardAddr string
}

// dashboardAddr выбирает адрес дашборда: флаг важнее конфига.
func dashboardAddr(dc config.DashboardConfig, override string) string {
	if override != "" {
		return override
	}
	return dc.Addr
}

// NewDesktop инициализирует аудио, инструменты и окна. Ничего не запускает
// до Run.
func NewDesktop(ctx context.Context, cfg *config.Config, opts DesktopOptions, log *slog.Logger) (*Desktop, error) {
	if log == nil {
		log = slog.Default()
	}
	i18n.SetLanguage(i18n.Language(cfg.UILanguage()))

	d := &Desktop{
		cfg:           cfg,
		log:           log,
		autoConnect:   opts.AutoConnect,
		dashboardAddr: dashboardAddr(cfg.Dashboard(), opts.DashboardAddr),
	}

	pa, err := audio.NewPortAudio(log)
	if err != nil {
		return nil, fmt.Errorf("app: audio: %w", err)
	}
	d.pa = pa
	d.recorder = audio.NewRecorder(pa, log)

	injector, err := input.New(log)
	if err != nil {
		d.release()
		return nil, fmt.Errorf("app: input: %w", err)
	}

	d.notifier = notify.New(cfg.NotificationsEnabled(), log)
	d.overlay = overlay.New(overlay.DefaultConfig())

	deps := Deps{
		Recorder: d.recorder,
		NewPlayer: func() (Player, error) {
			p, err := audio.NewPlayer(pa, log)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		Transcriber: &groqTranscriber{cfg: cfg, log: log, ask: dialog.AskAPIKey},
		Injector:    injector,
		Notifier:    d.notifier,
		Overlay:     d.overlay,
	}

	var decls []live.FunctionDeclaration
	if tc := cfg.Tools(); tc.Enabled {
		exec, closeFn, err := tools.Setup(ctx, tc.MemoryDB, tools.CommandOptions{
			CommandTimeout: tc.CommandTimeout,
			ClaudeTimeout:  tc.ClaudeTimeout,
		}, log)
		if err != nil {
			log.Warn("инструменты недоступны", "err", err)
		} else {
			deps.Tools = exec
			decls = exec.Declarations()
			d.closeTools = closeFn
		}
	}
	deps.Dial = (&geminiDialer{cfg: cfg, log: log, tools: decls, ask: dialog.AskAPIKey}).Dial

	if dc := cfg.Dashboard(); dc.Enabled {
		d.hub = dashboard.New(log)
		deps.Dashboard = d.hub
	}

	d.tray = tray.New(tray.Callbacks{
		OnDictation: func() { d.app.ToggleDictation() },
		OnLive:      func() { d.app.ToggleLive() },
		OnNotificationsToggle: func() bool {
			on := cfg.ToggleNotifications()
			d.notifier.SetEnabled(on)
			return on
		},
		OnQuit: func() { d.stop() },
	}, cfg.NotificationsEnabled())
	deps.Tray = d.tray

	o := DefaultOptions()
	o.FlushOutboundOnInterrupt = cfg.Gemini().FlushOutboundOnInterrupt
	a, err := New(deps, o, log)
	if err != nil {
		d.release()
		return nil, err
	}
	d.app = a

	d.overlay.OnClick(a.Click)
	d.overlay.OnAltPress(a.AltPress)
	d.overlay.OnCancel(a.Cancel)
	d.hotkeys = hotkey.NewBindings(a.ToggleDictation, a.ToggleLive, log)
	return d, nil
}

// App возвращает оркестратор.
func (d *Desktop) App() *App { return d.app }

// Run блокирует вызывающий (главный) поток на трее до выхода или отмены ctx.
func (d *Desktop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.stop = cancel

	var wg sync.WaitGroup
	var runErr error

	go func() {
		<-ctx.Done()
		d.tray.Quit()
	}()

	d.tray.Run(func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.app.Run(ctx); err != nil {
				runErr = err
				cancel()
			}
		}()

		if d.hub != nil {
			addr := d.dashboardAddr
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := d.hub.ListenAndServe(ctx, addr); err != nil {
					d.log.Error("дашборд остановлен", "addr", addr, "err", err)
				}
			}()
		}

		if err := d.hotkeys.Register(d.cfg.Hotkeys()); err != nil {
			d.log.Error("горячие клавиши", "err", err)
			d.notifier.Error(i18n.T("error_hotkey_register"))
		}
		d.cfg.OnHotkeyChange(func(h config.HotkeysConfig) {
			if err := d.hotkeys.Register(h); err != nil {
				d.log.Error("перерегистрация горячих клавиш", "err", err)
			}
		})

		d.log.Info("приложение запущено",
			"dictation", d.cfg.Hotkeys().Dictation.String(),
			"live", d.cfg.Hotkeys().Live.String())
		if d.autoConnect {
			d.app.ToggleLive()
		}
	})

	cancel()
	wg.Wait()
	d.release()
	return runErr
}

func (d *Desktop) release() {
	if d.hotkeys != nil {
		if err := d.hotkeys.Unregister(); err != nil {
			d.log.Debug("отмена горячих клавиш", "err", err)
		}
	}
	if d.overlay != nil {
		d.overlay.Hide()
	}
	if d.recorder != nil {
		d.recorder.Close()
	}
	if d.closeTools != nil {
		if err := d.closeTools(); err != nil {
			d.log.Warn("закрытие базы памяти", "err", err)
		}
	}
	if d.pa != nil {
		if err := d.pa.Terminate(); err != nil {
			d.log.Warn("завершение portaudio", "err", err)
		}
	}
}

// askFunc запрашивает недостающий API-ключ у пользователя.
type askFunc func(dialog.Service) (string, error)

// ensureKey возвращает ключ из конфигурации или спрашивает его и сохраняет.
func ensureKey(key string, s dialog.Service, ask askFunc, save func(string)) (string, error) {
	if key != "" {
		return key, nil
	}
	if ask == nil {
		return "", fmt.Errorf("app: %s: %s", s, i18n.T("error_no_key"))
	}
	key, err := ask(s)
	if err != nil {
		return "", fmt.Errorf("app: %s key: %w", s, err)
	}
	save(key)
	return key, nil
}

// groqTranscriber создаёт клиента Groq при первом использовании, чтобы
// ключ спрашивался только тогда, когда он действительно нужен.
type groqTranscriber struct {
	cfg     *config.Config
	log     *slog.Logger
	ask     askFunc
	options []groq.Option

	mu     sync.Mutex
	client *groq.Client
	key    string
}

func (g *groqTranscriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	c, err := g.get()
	if err != nil {
		return "", err
	}
	return c.Transcribe(ctx, wav)
}

func (g *groqTranscriber) get() (*groq.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	gc := g.cfg.Groq()
	key, err := ensureKey(gc.APIKey, dialog.Groq, g.ask, g.cfg.SetGroqAPIKey)
	if err != nil {
		return nil, err
	}
	if g.client != nil && g.key == key {
		return g.client, nil
	}

	opts := append([]groq.Option{groq.WithLogger(g.log)}, g.options...)
	c, err := groq.New(key, groq.Options{
		Model:          gc.Model,
		Language:       gc.Language,
		Prompt:         gc.Dictionary,
		Temperature:    gc.Temperature,
		ResponseFormat: gc.ResponseFormat,
	}, opts...)
	if err != nil {
		return nil, err
	}
	g.client, g.key = c, key
	return c, nil
}

// geminiDialer открывает live-сессию с текущими настройками.
type geminiDialer struct {
	cfg     *config.Config
	log     *slog.Logger
	tools   []live.FunctionDeclaration
	ask     askFunc
	options []live.Option
}

func (g *geminiDialer) Dial(ctx context.Context) (Session, error) {
	gc := g.cfg.Gemini()
	key, err := ensureKey(gc.APIKey, dialog.Gemini, g.ask, g.cfg.SetGeminiAPIKey)
	if err != nil {
		return nil, err
	}

	opts := append([]live.Option{live.WithModel(gc.Model), live.WithLogger(g.log)}, g.options...)
	sess, err := live.New(key, opts...).Connect(ctx, live.Config{
		Voice:             gc.VoiceName,
		SystemInstruction: gc.SystemInstruction,
		Tools:             g.tools,
	})
	if err != nil {
		var ce *live.ConnectError
		if errors.As(err, &ce) {
			g.log.Warn("подключение не удалось", "op", ce.Op)
		}
		return nil, err
	}
	return sess, nil
}
