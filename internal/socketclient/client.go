package socketclient

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codefionn/auswahl/internal/config"
	"github.com/codefionn/auswahl/internal/consts"
	"github.com/codefionn/auswahl/internal/logger"
	"github.com/codefionn/auswahl/internal/protocol"
	"github.com/codefionn/auswahl/internal/socketutil"
)

// ConnectionState represents the current state of the client connection
type ConnectionState int

const (
	// StateDisconnected indicates the client is not connected
	StateDisconnected ConnectionState = iota
	// StateConnecting indicates the client is dialing the server
	StateConnecting
	// StateConnected indicates the transport is up but no session exists yet
	StateConnected
	// StateRegistered indicates the session is confirmed and events flow
	StateRegistered
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRegistered:
		return "registered"
	default:
		return "unknown"
	}
}

// ServerTooOldError reports that the server only speaks an older protocol
// version than the one the client registered with.
type ServerTooOldError struct {
	Supported uint8
	Requested uint8
}

func (e *ServerTooOldError) Error() string {
	return fmt.Sprintf("server supports protocol version %d, client requested %d", e.Supported, e.Requested)
}

// Config holds client configuration
type Config struct {
	// Addr is the server address: host:port or a unix socket path
	Addr string
	// ConnectTimeout bounds the dial
	ConnectTimeout time.Duration
	// ReadTimeout bounds individual event reads. Zero, the default, waits
	// forever; picker sessions routinely idle while the user thinks.
	ReadTimeout time.Duration
	// WriteTimeout bounds individual request writes
	WriteTimeout time.Duration
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:           config.DefaultListen,
		ConnectTimeout: consts.DialTimeout,
		ReadTimeout:    0,
		WriteTimeout:   consts.Timeout10Seconds,
	}
}

// Client drives one picker session. Connect dials, Register opens the
// session, and the request methods steer the picker until the events channel
// reports its end. A client is not reusable; create a new one per session.
type Client struct {
	config *Config

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex
	state   atomic.Int32 // ConnectionState

	sessionID  uint64
	hasSession atomic.Bool

	events     chan protocol.Event
	eventsOnce sync.Once

	busyCallback         func()
	stateChangedCallback func(ConnectionState)

	wg        sync.WaitGroup
	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewClient creates a client for the given server address. An empty address
// selects the default.
func NewClient(addr string) *Client {
	cfg := DefaultConfig()
	if addr != "" {
		cfg.Addr = addr
	}
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(cfg *Config) *Client {
	client := &Client{
		config: cfg,
		events: make(chan protocol.Event, consts.EventQueueSize),
		stopCh: make(chan struct{}),
	}
	client.state.Store(int32(StateDisconnected))
	return client
}

// SetBusyCallback sets the callback invoked each time the server reports
// another session in progress. Register keeps waiting for admission after it
// fires.
func (c *Client) SetBusyCallback(fn func()) {
	c.busyCallback = fn
}

// SetStateChangedCallback sets the callback for connection state changes.
func (c *Client) SetStateChangedCallback(fn func(ConnectionState)) {
	c.stateChangedCallback = fn
}

// Connect dials the server. The session does not exist until Register.
func (c *Client) Connect(ctx context.Context) error {
	if c.getState() != StateDisconnected {
		return errors.New("already connected")
	}
	c.setState(StateConnecting)

	dialCtx := ctx
	if c.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	conn, err := socketutil.Dial(dialCtx, c.config.Addr)
	if err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("failed to connect to %s: %w", c.config.Addr, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.reader = bufio.NewReaderSize(conn, consts.BufferSize64KB)
	c.mu.Unlock()

	c.setState(StateConnected)
	return nil
}

// Register sends the registration line and waits for admission. Busy notices
// from the server fire the busy callback and the wait continues; the context
// is the only bound on it. On success the event loop starts and the assigned
// session id is returned. A failed registration closes the connection.
func (c *Client) Register(ctx context.Context, reg protocol.Registration) (uint64, error) {
	if c.getState() != StateConnected {
		return 0, errors.New("not connected")
	}

	line, err := protocol.EncodeRegistration(reg)
	if err != nil {
		return 0, fmt.Errorf("failed to encode registration: %w", err)
	}
	if err := c.writeRaw(line); err != nil {
		c.teardownConn()
		return 0, fmt.Errorf("failed to send registration: %w", err)
	}

	// Admission can take arbitrarily long behind a busy server. The watcher
	// aborts the blocking reads when the context ends.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if c.conn != nil {
				c.conn.Close()
			}
			c.mu.Unlock()
		case <-done:
		}
	}()

	id, err := c.awaitRegistered(reg.Version)
	close(done)
	if err != nil {
		c.teardownConn()
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, err
	}

	c.sessionID = id
	c.hasSession.Store(true)
	c.setState(StateRegistered)
	logger.Debug("Registered as session %d", id)

	c.wg.Add(1)
	go c.readPump()

	return id, nil
}

// awaitRegistered consumes server responses until the session is confirmed
// or rejected. Anything the server should never send during admission is a
// fatal registration error.
func (c *Client) awaitRegistered(requested uint8) (uint64, error) {
	for {
		line, err := c.readLine()
		if err != nil {
			return 0, fmt.Errorf("registration failed: %w", err)
		}
		msg, err := protocol.DecodeLine(line)
		if err != nil {
			return 0, fmt.Errorf("registration failed: %w", err)
		}

		switch msg.Key {
		case protocol.KeyBusy:
			logger.Debug("Server busy, waiting for the current session to end")
			if c.busyCallback != nil {
				c.busyCallback()
			}

		case protocol.KeyServerTooOld:
			var supported uint8
			if err := msg.DecodeData(&supported); err != nil {
				return 0, fmt.Errorf("malformed server_too_old message: %w", err)
			}
			return 0, &ServerTooOldError{Supported: supported, Requested: requested}

		case protocol.KeyRegistered:
			var id uint64
			if err := msg.DecodeData(&id); err != nil {
				return 0, fmt.Errorf("malformed registered message: %w", err)
			}
			return id, nil

		default:
			return 0, fmt.Errorf("unexpected message %q during registration", msg.Key)
		}
	}
}

// SessionID returns the server-assigned session id once registered.
func (c *Client) SessionID() (uint64, bool) {
	if !c.hasSession.Load() {
		return 0, false
	}
	return c.sessionID, true
}

// Events returns the stream of user events for this session. The channel is
// closed when the session ends; for window_closed subscribers that event is
// the last one delivered.
func (c *Client) Events() <-chan protocol.Event {
	return c.events
}

// IsRegistered returns true while the session is live.
func (c *Client) IsRegistered() bool {
	return c.getState() == StateRegistered
}

// GetState returns the current connection state.
func (c *Client) GetState() ConnectionState {
	return c.getState()
}

func (c *Client) getState() ConnectionState {
	return ConnectionState(c.state.Load())
}

func (c *Client) setState(state ConnectionState) {
	old := ConnectionState(c.state.Swap(int32(state)))
	if c.stateChangedCallback != nil && old != state {
		c.stateChangedCallback(state)
	}
}

// teardownConn closes the transport after a failed registration.
func (c *Client) teardownConn() {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
	c.setState(StateDisconnected)
}

// readPump turns incoming lines into events until the server closes the
// connection.
func (c *Client) readPump() {
	defer c.wg.Done()
	defer c.closeEvents()

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		if c.config.ReadTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		}

		line, err := c.readLine()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Debug("Event stream ended: %v", err)
			}
			if c.getState() == StateRegistered {
				c.setState(StateDisconnected)
			}
			return
		}

		msg, err := protocol.DecodeLine(line)
		if err != nil {
			logger.Warn("Discarding malformed server line: %v", err)
			continue
		}

		event, err := protocol.DecodeEvent(msg)
		if err != nil {
			logger.Warn("Discarding unexpected message %q: %v", msg.Key, err)
			continue
		}

		select {
		case c.events <- event:
		case <-c.stopCh:
			return
		}
	}
}

// readLine reads one newline-delimited line, skipping blank ones.
func (c *Client) readLine() ([]byte, error) {
	for {
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			return nil, err
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		return line, nil
	}
}

// sendRequest encodes and writes one request line.
func (c *Client) sendRequest(req protocol.Request) error {
	if c.getState() != StateRegistered {
		return errors.New("not registered")
	}

	msg, err := protocol.EncodeRequest(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	return c.writeRaw(data)
}

func (c *Client) writeRaw(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.config.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	_, err := c.conn.Write(data)
	return err
}

func (c *Client) closeEvents() {
	c.eventsOnce.Do(func() {
		close(c.events)
	})
}

// Close tears the connection down without sending stop. Prefer Stop followed
// by draining Events for a graceful end.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopCh)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
		c.wg.Wait()
		c.closeEvents()
		c.setState(StateDisconnected)
	})
	return nil
}
