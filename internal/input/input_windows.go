//go:build windows

package input

import (
	"fmt"
	"log/slog"
	"strconv"
	"syscall"
	"unicode/utf16"
	"unsafe"
)

var (
	user32                  = syscall.NewLazyDLL("user32.dll")
	procSendInput           = user32.NewProc("SendInput")
	procGetForegroundWindow = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
)

const (
	inputKeyboard    = 1
	keyEventFKeyUp   = 0x0002
	keyEventFUnicode = 0x0004
)

type keyboardInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

type input struct {
	inputType uint32
	ki        keyboardInput
	padding   uint64
}

type windowsInjector struct {
	log *slog.Logger
}

func newInjector(log *slog.Logger) (Injector, error) {
	return &windowsInjector{log: log}, nil
}

// ActiveWindow возвращает HWND окна переднего плана.
func (t *windowsInjector) ActiveWindow() (Target, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return "", nil
	}
	return Target(strconv.FormatUint(uint64(hwnd), 10)), nil
}

func (t *windowsInjector) Inject(text string, target Target) error {
	if target != "" {
		hwnd, err := strconv.ParseUint(string(target), 10, 64)
		if err != nil {
			return fmt.Errorf("input: bad window handle %q: %w", target, err)
		}
		if ok, _, _ := procSetForegroundWindow.Call(uintptr(hwnd)); ok == 0 {
			t.log.Warn("не удалось активировать окно", "window", target)
		}
	}

	runes := utf16.Encode([]rune(text))
	inputs := make([]input, 0, len(runes)*2)

	for _, r := range runes {
		// Key down
		inputs = append(inputs, input{
			inputType: inputKeyboard,
			ki: keyboardInput{
				wScan:   r,
				dwFlags: keyEventFUnicode,
			},
		})
		// Key up
		inputs = append(inputs, input{
			inputType: inputKeyboard,
			ki: keyboardInput{
				wScan:   r,
				dwFlags: keyEventFUnicode | keyEventFKeyUp,
			},
		})
	}

	if len(inputs) == 0 {
		return nil
	}

	sent, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		uintptr(unsafe.Sizeof(inputs[0])),
	)
	if int(sent) != len(inputs) {
		return fmt.Errorf("input: SendInput sent %d of %d events: %w", sent, len(inputs), err)
	}
	return nil
}
