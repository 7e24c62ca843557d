// Package discord implements the local IPC transport of the Discord
// desktop client: socket discovery, frame codec, handshake and the
// SET_ACTIVITY command.
package discord
