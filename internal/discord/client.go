package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/jmylchreest/presence/internal/model"
	"github.com/jmylchreest/presence/internal/presence"
)

// DefaultTimeout is the per-request deadline used when the context has none.
const DefaultTimeout = 10 * time.Second

// ErrNotConnected is returned by requests made before Login succeeded.
var ErrNotConnected = errors.New("not connected to Discord")

// Client is a single IPC session with the desktop client.
type Client struct {
	mu     sync.Mutex
	logger *slog.Logger

	socketPath  string
	timeout     time.Duration
	mimeCommand string
	pid         int
	dial        func(ctx context.Context, path string) (net.Conn, error)

	conn     net.Conn
	clientID string
	user     User
}

// NewClient creates a Client that discovers the IPC socket on Login.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger:      logger,
		timeout:     DefaultTimeout,
		mimeCommand: "xdg-mime",
		pid:         os.Getpid(),
		dial:        DialSocket,
	}
}

// SetSocketPath pins the IPC socket instead of probing candidates.
func (c *Client) SetSocketPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.socketPath = path
}

// SetTimeout sets the per-request deadline.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if timeout > 0 {
		c.timeout = timeout
	}
}

// User returns the account reported by the READY event.
func (c *Client) User() User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Username returns the user name reported by the READY event.
func (c *Client) Username() string {
	return c.User().Username
}

// Login connects to the socket and performs the handshake for clientID.
// An existing connection is dropped first.
func (c *Client) Login(ctx context.Context, clientID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropLocked()
	c.clientID = clientID
	return c.connectLocked(ctx)
}

// connectLocked dials and performs the handshake. Must be called with c.mu held.
func (c *Client) connectLocked(ctx context.Context) error {
	conn, err := c.dial(ctx, c.socketPath)
	if err != nil {
		return err
	}
	c.setDeadline(ctx, conn)
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := WriteFrame(conn, OpHandshake, handshake{V: rpcVersion, ClientID: c.clientID}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to send handshake: %w", err)
	}

	for {
		frame, err := ReadFrame(conn)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to read handshake reply: %w", err)
		}

		switch frame.Op {
		case OpPing:
			if err := writeRaw(conn, OpPong, frame.Payload); err != nil {
				_ = conn.Close()
				return fmt.Errorf("failed to answer ping: %w", err)
			}
			continue
		case OpClose:
			_ = conn.Close()
			return closeError(frame)
		case OpFrame:
		default:
			continue
		}

		var resp response
		if err := frame.Decode(&resp); err != nil {
			_ = conn.Close()
			return fmt.Errorf("invalid handshake reply: %w", err)
		}
		if resp.Evt == evtError {
			_ = conn.Close()
			return decodeError(resp)
		}
		if resp.Cmd != cmdDispatch || resp.Evt != evtReady {
			continue
		}

		var ready readyData
		if len(resp.Data) > 0 {
			if err := json.Unmarshal(resp.Data, &ready); err != nil {
				c.logger.Debug("failed to decode READY payload", "error", err)
			}
		}

		c.conn = conn
		c.user = ready.User
		c.logger.Debug("ipc connected", "user", ready.User.Username, "client_id", c.clientID)
		return nil
	}
}

// SetActivity publishes the activity for this process.
func (c *Client) SetActivity(ctx context.Context, activity model.Activity) error {
	_, err := c.request(ctx, cmdSetActivity, activityArgs{
		PID:      c.pid,
		Activity: newActivityPayload(activity),
	})
	return err
}

// ClearActivity removes the activity for this process.
func (c *Client) ClearActivity(ctx context.Context) error {
	_, err := c.request(ctx, cmdSetActivity, activityArgs{PID: c.pid})
	return err
}

// request sends a command and waits for the reply with the same nonce.
// A dropped connection is re-established once using the last client id.
func (c *Client) request(ctx context.Context, cmd string, args any) (*response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if c.clientID == "" {
			return nil, ErrNotConnected
		}
		c.logger.Debug("ipc connection lost, reconnecting", "client_id", c.clientID)
		if err := c.connectLocked(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotConnected, err)
		}
	}

	nonce, err := model.NewNonce()
	if err != nil {
		return nil, err
	}

	conn := c.conn
	c.setDeadline(ctx, conn)
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := WriteFrame(conn, OpFrame, command{Cmd: cmd, Args: args, Nonce: nonce}); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("failed to send %s: %w", cmd, err)
	}

	for {
		frame, err := ReadFrame(conn)
		if err != nil {
			c.dropLocked()
			return nil, fmt.Errorf("failed to read %s reply: %w", cmd, err)
		}

		switch frame.Op {
		case OpPing:
			if err := writeRaw(conn, OpPong, frame.Payload); err != nil {
				c.dropLocked()
				return nil, fmt.Errorf("failed to answer ping: %w", err)
			}
			continue
		case OpClose:
			c.dropLocked()
			return nil, closeError(frame)
		case OpFrame:
		default:
			continue
		}

		var resp response
		if err := frame.Decode(&resp); err != nil {
			return nil, fmt.Errorf("invalid %s reply: %w", cmd, err)
		}
		if resp.Nonce != nonce {
			// Unsolicited dispatch
			continue
		}
		if resp.Evt == evtError {
			return nil, decodeError(resp)
		}
		return &resp, nil
	}
}

// Close sends a close frame and releases the connection. Safe to call
// more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clientID = ""
	if c.conn == nil {
		return nil
	}
	_ = WriteFrame(c.conn, OpClose, struct{}{})
	err := c.conn.Close()
	c.conn = nil
	return err
}

// dropLocked closes the connection without a close frame. Must be called with c.mu held.
func (c *Client) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) setDeadline(ctx context.Context, conn net.Conn) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	_ = conn.SetDeadline(deadline)
}

func closeError(frame Frame) error {
	e := &Error{}
	if err := frame.Decode(e); err != nil || e.Message == "" {
		return &Error{Code: e.Code, Message: "connection closed by client"}
	}
	return e
}

func decodeError(resp response) error {
	e := &Error{}
	if err := json.Unmarshal(resp.Data, e); err != nil || e.Message == "" {
		return &Error{Message: "unknown error"}
	}
	return e
}

var (
	_ presence.Transport = (*Client)(nil)
	_ presence.Account   = (*Client)(nil)
)
