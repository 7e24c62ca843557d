package tui

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ClipboardEnv overrides the clipboard command, e.g. "wl-copy -p".
const ClipboardEnv = "PRESENCE_CLIPBOARD"

var errNoClipboard = errors.New("no clipboard command available")

// copyText pipes text into the clipboard command for this session.
func copyText(text string) error {
	argv := clipboardCommand(os.Getenv, exec.LookPath)
	if len(argv) == 0 {
		return errNoClipboard
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Stdin = strings.NewReader(text)
	return c.Run()
}

// clipboardCommand picks a copy command. The override wins, then the tool
// matching the session type, then anything installed.
func clipboardCommand(getenv func(string) string, lookPath func(string) (string, error)) []string {
	if override := strings.Fields(getenv(ClipboardEnv)); len(override) > 0 {
		return override
	}

	wayland := [][]string{{"wl-copy"}}
	x11 := [][]string{
		{"xclip", "-selection", "clipboard"},
		{"xsel", "--clipboard", "--input"},
	}

	var candidates [][]string
	switch {
	case getenv("WAYLAND_DISPLAY") != "":
		candidates = append(wayland, x11...)
	case getenv("DISPLAY") != "":
		candidates = append(x11, wayland...)
	default:
		candidates = append(wayland, x11...)
	}

	for _, argv := range candidates {
		if _, err := lookPath(argv[0]); err == nil {
			return argv
		}
	}
	return nil
}
