package discord

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/presence/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDesktopEntry(t *testing.T) {
	entry := desktopEntry("1234", "/usr/bin/presenced")

	assert.Contains(t, entry, "[Desktop Entry]\n")
	assert.Contains(t, entry, "Name=1234\n")
	assert.Contains(t, entry, "Exec=/usr/bin/presenced %u\n")
	assert.Contains(t, entry, "NoDisplay=true\n")
	assert.Contains(t, entry, "MimeType=x-scheme-handler/discord-1234;\n")
}

func TestRegisterURLHandler(t *testing.T) {
	dataHome := t.TempDir()

	require.NoError(t, registerURLHandler("1234", "/usr/bin/presenced", dataHome, ""))

	data, err := os.ReadFile(filepath.Join(dataHome, "applications", "discord-1234.desktop"))
	require.NoError(t, err)
	assert.Equal(t, desktopEntry("1234", "/usr/bin/presenced"), string(data))
}

func TestRegisterURLHandlerMissingMimeTool(t *testing.T) {
	dataHome := t.TempDir()

	err := registerURLHandler("1234", "/usr/bin/presenced", dataHome, "presence-no-such-binary")
	assert.NoError(t, err)
	assert.FileExists(t, filepath.Join(dataHome, "applications", "discord-1234.desktop"))
}

func TestRegisterURLHandlerClientID(t *testing.T) {
	tests := []struct {
		name     string
		clientID string
		wantErr  error
	}{
		{"snowflake", "123456789012345678", nil},
		{"path traversal", "../x", config.ErrInvalidClientID},
		{"embedded newline", "12\nExec=evil", config.ErrInvalidClientID},
		{"separator", "12/34", config.ErrInvalidClientID},
		{"empty", "", config.ErrClientIDRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			dataHome := filepath.Join(root, "share")

			err := registerURLHandler(tt.clientID, "/usr/bin/presenced", dataHome, "")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				entries, readErr := os.ReadDir(root)
				require.NoError(t, readErr)
				assert.Empty(t, entries, "nothing written for %q", tt.clientID)
				return
			}

			require.NoError(t, err)
			assert.FileExists(t, filepath.Join(dataHome, "applications", "discord-"+tt.clientID+".desktop"))
		})
	}
}

func TestRegisterURLHandlerNoDataHome(t *testing.T) {
	assert.Error(t, registerURLHandler("1234", "/usr/bin/presenced", "", ""))
}

func TestClientRegister(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	c := NewClient(nil)
	c.mimeCommand = ""
	require.NoError(t, c.Register("99"))
	assert.FileExists(t, filepath.Join(dataHome, "applications", "discord-99.desktop"))
}
