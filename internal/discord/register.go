package discord

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmylchreest/presence/internal/config"
)

// desktopEntry returns the URL handler entry for clientID.
func desktopEntry(clientID, exe string) string {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	fmt.Fprintf(&b, "Name=%s\n", clientID)
	fmt.Fprintf(&b, "Exec=%s %%u\n", exe)
	b.WriteString("Type=Application\n")
	b.WriteString("NoDisplay=true\n")
	b.WriteString("Categories=Discord;Games;\n")
	fmt.Fprintf(&b, "MimeType=x-scheme-handler/discord-%s;\n", clientID)
	return b.String()
}

// registerURLHandler installs discord-<id>.desktop below dataHome and,
// when mimeCommand is set, makes it the default handler for the scheme.
func registerURLHandler(clientID, exe, dataHome, mimeCommand string) error {
	if err := config.ValidateClientID(clientID); err != nil {
		return err
	}
	if dataHome == "" {
		return fmt.Errorf("unable to determine data directory")
	}

	dir := filepath.Join(dataHome, "applications")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create applications directory: %w", err)
	}

	name := "discord-" + clientID + ".desktop"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(desktopEntry(clientID, exe)), 0644); err != nil {
		return fmt.Errorf("failed to write desktop entry: %w", err)
	}

	if mimeCommand == "" {
		return nil
	}
	if _, err := exec.LookPath(mimeCommand); err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, mimeCommand, "default", name, "x-scheme-handler/discord-"+clientID)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", mimeCommand, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Register associates clientID with this executable as URL handler.
func (c *Client) Register(clientID string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable: %w", err)
	}
	return registerURLHandler(clientID, exe, config.DataHome(), c.mimeCommand)
}
