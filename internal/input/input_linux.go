//go:build linux

package input

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

const (
	commandTimeout = 5 * time.Second
	// Пауза между активацией окна и нажатием Ctrl+V.
	activateDelay = 50 * time.Millisecond
)

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

type linuxInjector struct {
	useWayland bool
	log        *slog.Logger
	run        runFunc
	copy       func(string) error
	sleep      func(time.Duration)
}

func newInjector(log *slog.Logger) (Injector, error) {
	return &linuxInjector{
		useWayland: os.Getenv("WAYLAND_DISPLAY") != "",
		log:        log,
		run:        execOutput,
		copy:       clipboard.WriteAll,
		sleep:      time.Sleep,
	}, nil
}

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (t *linuxInjector) command(name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	out, err := t.run(ctx, name, args...)
	if err != nil {
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// ActiveWindow возвращает id окна X11. Под Wayland окно получить нельзя,
// возвращается пустой Target.
func (t *linuxInjector) ActiveWindow() (Target, error) {
	if t.useWayland {
		return "", nil
	}
	out, err := t.command("xdotool", "getactivewindow")
	if err != nil {
		return "", err
	}
	return Target(strings.TrimSpace(string(out))), nil
}

// Inject кладёт текст в буфер обмена и вставляет его через Ctrl+V. Если буфер
// недоступен, текст набирается посимвольно.
func (t *linuxInjector) Inject(text string, target Target) error {
	if text == "" {
		return nil
	}

	if err := t.copy(text); err != nil {
		t.log.Warn("буфер обмена недоступен, набираю текст", "err", err)
		return t.typeText(text, target)
	}

	if t.useWayland {
		_, err := t.command("wtype", "-M", "ctrl", "-P", "v", "-m", "ctrl")
		return err
	}

	if err := t.activate(target); err != nil {
		t.log.Warn("не удалось активировать окно", "window", target, "err", err)
	}
	_, err := t.command("xdotool", "key", "--clearmodifiers", "ctrl+v")
	return err
}

func (t *linuxInjector) activate(target Target) error {
	if target == "" {
		return nil
	}
	if _, err := t.command("xdotool", "windowactivate", "--sync", string(target)); err != nil {
		return err
	}
	t.sleep(activateDelay)
	return nil
}

func (t *linuxInjector) typeText(text string, target Target) error {
	if t.useWayland {
		_, err := t.command("wtype", "--", text)
		return err
	}
	if err := t.activate(target); err != nil {
		t.log.Warn("не удалось активировать окно", "window", target, "err", err)
	}
	_, err := t.command("xdotool", "type", "--clearmodifiers", "--", text)
	return err
}
