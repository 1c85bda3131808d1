package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/codefionn/auswahl/internal/consts"
	"github.com/codefionn/auswahl/internal/logger"
	"github.com/codefionn/auswahl/internal/protocol"
)

// Conn handles a single client connection from registration to teardown.
//
// All socket writes go through a single write pump fed by the send channel,
// so the event forwarder and the handshake never interleave partial lines.
type Conn struct {
	id     uint64
	conn   net.Conn
	lock   *SessionLock
	worker *Worker

	registrationTimeout time.Duration

	send      chan protocol.Message
	stopChan  chan struct{}
	stopOnce  sync.Once
	writeDone chan struct{}

	// writeDead is only touched by the write pump.
	writeDead bool
}

func newConn(id uint64, conn net.Conn, lock *SessionLock, worker *Worker, registrationTimeout time.Duration) *Conn {
	return &Conn{
		id:                  id,
		conn:                conn,
		lock:                lock,
		worker:              worker,
		registrationTimeout: registrationTimeout,
		send:                make(chan protocol.Message, consts.SendQueueSize),
		stopChan:            make(chan struct{}),
		writeDone:           make(chan struct{}),
	}
}

// serve runs the connection until the client stops, disconnects, or the
// context is cancelled.
func (c *Conn) serve(ctx context.Context) {
	logger.Debug("Session %d: connection from %s", c.id, c.conn.RemoteAddr())

	go c.writePump()
	defer c.teardown()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, consts.BufferSize1KB), consts.MaxLineBytes)

	reg, err := c.readRegistration(scanner)
	if err != nil {
		// Malformed registrations get no wire notice, the line may not
		// even have been JSON.
		logger.Warn("Session %d: registration failed: %v", c.id, err)
		return
	}

	if reg.Version > protocol.ProtocolVersion {
		logger.Warn("Session %d: client protocol version %d exceeds supported version %d",
			c.id, reg.Version, protocol.ProtocolVersion)
		if msg, err := protocol.NewServerTooOldMessage(protocol.ProtocolVersion); err == nil {
			c.enqueue(msg)
		}
		return
	}

	guard, ok := c.lock.TryAcquire()
	if !ok {
		logger.Debug("Session %d: surface busy, waiting for current session", c.id)
		c.enqueue(protocol.NewBusyMessage())

		var err error
		guard, err = c.lock.Acquire(ctx)
		if err != nil {
			logger.Debug("Session %d: gave up waiting for surface: %v", c.id, err)
			return
		}
	}
	defer guard.Release()

	events := make(chan protocol.Event, consts.EventQueueSize)
	reply := make(chan HandoffResult, 1)
	handoff := SessionHandoff{
		SessionID: c.id,
		Matcher:   reg.Matcher,
		Events:    events,
		Reply:     reply,
	}
	if !c.worker.Submit(handoff) {
		logger.Debug("Session %d: server is stopping, dropping session", c.id)
		return
	}

	var surface Surface
	select {
	case res := <-reply:
		if res.Err != nil {
			logger.Error("Session %d: surface failed to start: %v", c.id, res.Err)
			return
		}
		surface = res.Surface
	case <-ctx.Done():
		// The worker stop path winds down whatever surface the reply
		// would have carried.
		return
	}

	registered, err := protocol.NewRegisteredMessage(c.id)
	if err != nil {
		logger.Error("Session %d: failed to encode registration confirmation: %v", c.id, err)
		surface.Dispatch(protocol.StopRequest{})
		return
	}
	c.enqueue(registered)
	logger.Info("Session %d: registered (subscriptions: %s, matcher: %s)", c.id, reg.Subscribe, reg.Matcher)

	forwardDone := make(chan struct{})
	go c.forwardEvents(events, reg.Subscribe, forwardDone)

	stopped := c.requestLoop(scanner, surface)

	if !stopped {
		logger.Info("Session %d: client went away without stop, stopping surface", c.id)
		surface.Dispatch(protocol.StopRequest{})
	}

	// Wait for the worker to close the events channel so the final
	// window_closed still reaches clients that subscribed to it.
	select {
	case <-forwardDone:
	case <-time.After(consts.ShutdownGrace):
		logger.Warn("Session %d: surface did not wind down within %s", c.id, consts.ShutdownGrace)
	}

	logger.Info("Session %d: finished", c.id)
}

// readRegistration reads and parses the mandatory first line. The deadline
// only applies here; once a client is registered it may idle indefinitely
// while the user interacts with the surface.
func (c *Conn) readRegistration(scanner *bufio.Scanner) (protocol.Registration, error) {
	if c.registrationTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.registrationTimeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return protocol.Registration{}, err
		}
		return protocol.Registration{}, io.EOF
	}

	return protocol.ParseRegistration(scanner.Bytes())
}

// requestLoop relays client requests to the surface until the client sends
// stop or the connection dies. Malformed lines are logged and skipped; only
// transport errors end the loop. Reports whether a stop request was seen.
func (c *Conn) requestLoop(scanner *bufio.Scanner, surface Surface) bool {
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		msg, err := protocol.DecodeLine(line)
		if err != nil {
			logger.Warn("Session %d: discarding malformed line: %v", c.id, err)
			continue
		}

		req, err := protocol.DecodeRequest(msg)
		if err != nil {
			logger.Warn("Session %d: discarding request %q: %v", c.id, msg.Key, err)
			continue
		}

		surface.Dispatch(req)

		if req.Kind() == protocol.RequestStop {
			logger.Debug("Session %d: client requested stop", c.id)
			return true
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Debug("Session %d: request loop ended: %v", c.id, err)
	}
	return false
}

// forwardEvents relays surface events the client subscribed to. The loop
// keeps draining after the client stops reading so the surface never blocks
// on a dead connection; it ends only when the worker closes the channel.
func (c *Conn) forwardEvents(events <-chan protocol.Event, mask protocol.SubscriptionMask, done chan<- struct{}) {
	defer close(done)

	for event := range events {
		if !mask.Wants(event.Kind()) {
			continue
		}

		msg, err := protocol.EncodeEvent(event)
		if err != nil {
			logger.Error("Session %d: failed to encode %s event: %v", c.id, event.Kind(), err)
			continue
		}

		c.enqueue(msg)
	}
}

// enqueue hands a message to the write pump. Once teardown has begun the
// message is dropped instead.
func (c *Conn) enqueue(msg protocol.Message) {
	select {
	case c.send <- msg:
	case <-c.stopChan:
	}
}

// writePump is the only goroutine writing to the socket. On shutdown it
// flushes whatever is already queued before the socket closes.
func (c *Conn) writePump() {
	defer close(c.writeDone)

	for {
		select {
		case msg := <-c.send:
			c.writeMessage(msg)
		case <-c.stopChan:
			for {
				select {
				case msg := <-c.send:
					c.writeMessage(msg)
				default:
					return
				}
			}
		}
	}
}

func (c *Conn) writeMessage(msg protocol.Message) {
	if c.writeDead {
		return
	}

	data, err := msg.Encode()
	if err != nil {
		logger.Error("Session %d: failed to encode message %q: %v", c.id, msg.Key, err)
		return
	}

	c.conn.SetWriteDeadline(time.Now().Add(consts.Timeout10Seconds))
	if _, err := c.conn.Write(data); err != nil {
		// The client stopped reading; remember it so the pump drains the
		// queue without further write attempts.
		logger.Info("Session %d: client stopped reading: %v", c.id, err)
		c.writeDead = true
	}
}

// teardown flushes the write pump and closes the socket.
func (c *Conn) teardown() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	<-c.writeDone
	c.conn.Close()
	logger.Debug("Session %d: connection closed", c.id)
}

// forceClose unblocks any pending read so serve can unwind; used by the
// server's stop path. The regular teardown still runs afterwards.
func (c *Conn) forceClose() {
	c.conn.Close()
}
