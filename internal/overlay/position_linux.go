//go:build linux

package overlay

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// positionWindow moves the overlay to the bottom centre of the screen and
// keeps it above other windows. Needs xdotool; wmctrl or xprop for the
// always-on-top hint. Under Wayland the compositor decides and this is a no-op.
func positionWindow(title string, width, height int) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	time.Sleep(100 * time.Millisecond)

	sw, sh := screenSize(ctx)
	if sw == 0 || sh == 0 {
		return
	}

	out, err := exec.CommandContext(ctx, "xdotool", "search", "--name", "^"+title+"$").Output()
	if err != nil {
		return
	}
	ids := strings.Fields(string(out))
	if len(ids) == 0 {
		return
	}
	id := ids[0]

	x := (sw - width) / 2
	y := sh - height - 80
	_ = exec.CommandContext(ctx, "xdotool", "windowmove", id, strconv.Itoa(x), strconv.Itoa(y)).Run()

	if err := exec.CommandContext(ctx, "wmctrl", "-i", "-r", id, "-b", "add,above,skip_taskbar").Run(); err != nil {
		_ = exec.CommandContext(ctx, "xprop", "-id", id, "-f", "_NET_WM_STATE", "32a",
			"-set", "_NET_WM_STATE", "_NET_WM_STATE_ABOVE").Run()
	}
}

func screenSize(ctx context.Context) (width, height int) {
	out, err := exec.CommandContext(ctx, "xdotool", "getdisplaygeometry").Output()
	if err != nil {
		return 0, 0
	}
	parts := strings.Fields(string(out))
	if len(parts) != 2 {
		return 0, 0
	}
	width, _ = strconv.Atoi(parts[0])
	height, _ = strconv.Atoi(parts[1])
	return width, height
}
