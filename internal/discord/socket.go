package discord

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// ErrNoSocket is returned when no IPC socket could be found.
var ErrNoSocket = errors.New("no Discord IPC socket found")

// socketSubdirs are searched below each base directory; sandboxed
// clients expose their socket one level down.
var socketSubdirs = []string{
	"",
	filepath.Join("app", "com.discordapp.Discord"),
	filepath.Join("app", "com.discordapp.DiscordCanary"),
	"snap.discord",
	"snap.discord-canary",
}

// SocketCandidates returns the IPC socket paths to probe, in order.
func SocketCandidates() []string {
	var bases []string
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if v := os.Getenv(env); v != "" {
			bases = append(bases, v)
		}
	}
	bases = append(bases, "/tmp")

	seen := make(map[string]bool)
	var candidates []string
	for i := range 10 {
		name := fmt.Sprintf("discord-ipc-%d", i)
		for _, base := range bases {
			for _, sub := range socketSubdirs {
				path := filepath.Join(base, sub, name)
				if seen[path] {
					continue
				}
				seen[path] = true
				candidates = append(candidates, path)
			}
		}
	}
	return candidates
}

// dialUnix connects to a single socket path.
func dialUnix(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}

// DialSocket connects to path, or to the first reachable candidate when
// path is empty.
func DialSocket(ctx context.Context, path string) (net.Conn, error) {
	if path != "" {
		conn, err := dialUnix(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
		}
		return conn, nil
	}

	var lastErr error
	for _, candidate := range SocketCandidates() {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		conn, err := dialUnix(ctx, candidate)
		if err != nil {
			lastErr = err
			continue
		}
		return conn, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSocket, lastErr)
	}
	return nil, ErrNoSocket
}
