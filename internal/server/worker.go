package server

import (
	"errors"
	"time"

	"github.com/codefionn/auswahl/internal/consts"
	"github.com/codefionn/auswahl/internal/logger"
	"github.com/codefionn/auswahl/internal/protocol"
)

var errSurfaceStartTimeout = errors.New("surface did not start in time")

// Surface is one live interaction surface instance.
type Surface interface {
	// Dispatch forwards a client request to the surface. It must be safe to
	// call after the surface has terminated.
	Dispatch(req protocol.Request)

	// Done is closed once the surface has terminated.
	Done() <-chan struct{}
}

// SurfaceFactory starts a new interaction surface and returns once it is
// ready to accept dispatches. The surface sends user events on the events
// channel until it terminates; it must never close the channel and must not
// retain it after returning an error. The worker closes the channel once the
// surface is done.
type SurfaceFactory func(matcher protocol.MatcherKind, events chan<- protocol.Event) (Surface, error)

// SessionHandoff carries everything the worker needs to run one session.
type SessionHandoff struct {
	SessionID uint64
	Matcher   protocol.MatcherKind
	Events    chan protocol.Event
	Reply     chan HandoffResult
}

// HandoffResult is the worker's one-shot answer to a handoff: either a live
// surface handle or the startup error.
type HandoffResult struct {
	Surface Surface
	Err     error
}

// Worker runs interaction surfaces strictly one at a time. Connections submit
// a SessionHandoff and receive the surface handle on the handoff's reply
// channel once the surface is up.
type Worker struct {
	factory  SurfaceFactory
	handoffs chan SessionHandoff
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewWorker creates a worker that builds surfaces with the given factory.
func NewWorker(factory SurfaceFactory) *Worker {
	return &Worker{
		factory:  factory,
		handoffs: make(chan SessionHandoff, 1),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the worker loop.
func (w *Worker) Start() {
	go w.run()
}

// Stop terminates the worker loop and waits for the current session's surface
// to wind down.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}

// Submit queues a session handoff. It returns false when the worker is
// stopping and the handoff was not accepted.
func (w *Worker) Submit(h SessionHandoff) bool {
	select {
	case w.handoffs <- h:
		return true
	case <-w.stopChan:
		return false
	}
}

func (w *Worker) run() {
	defer close(w.doneChan)

	for {
		select {
		case <-w.stopChan:
			return
		case h := <-w.handoffs:
			w.runSession(h)
		}
	}
}

// runSession drives one session from surface startup to the final
// window_closed event. The worker closes the events channel exactly once,
// and only after the last sender is gone, so the connection's forwarder
// always sees a clean end of stream.
func (w *Worker) runSession(h SessionHandoff) {
	surface, err := w.startSurface(h)
	if err != nil {
		logger.Error("Failed to start surface for session %d: %v", h.SessionID, err)
		h.Reply <- HandoffResult{Err: err}
		return
	}

	h.Reply <- HandoffResult{Surface: surface}

	select {
	case <-surface.Done():
	case <-w.stopChan:
		// Server shutdown while the surface is live: ask it to stop and
		// wait for it to wind down.
		surface.Dispatch(protocol.StopRequest{})
		select {
		case <-surface.Done():
		case <-time.After(consts.ShutdownGrace):
			logger.Warn("Surface for session %d did not stop within %s", h.SessionID, consts.ShutdownGrace)
		}
	}

	h.Events <- protocol.WindowClosedEvent{}
	close(h.Events)
}

// startSurface invokes the factory with a startup timeout so a wedged
// surface cannot stall every future session. Whichever path learns that no
// sender remains is the one that closes the events channel.
func (w *Worker) startSurface(h SessionHandoff) (Surface, error) {
	type result struct {
		surface Surface
		err     error
	}

	resultChan := make(chan result, 1)
	go func() {
		surface, err := w.factory(h.Matcher, h.Events)
		resultChan <- result{surface: surface, err: err}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil {
			close(h.Events)
			return nil, res.err
		}
		return res.surface, nil
	case <-time.After(consts.SurfaceStartTimeout):
		// The factory may still come up later; wind the stray surface down
		// before the channel is closed.
		go func() {
			res := <-resultChan
			if res.err == nil && res.surface != nil {
				res.surface.Dispatch(protocol.StopRequest{})
				<-res.surface.Done()
			}
			close(h.Events)
		}()
		return nil, errSurfaceStartTimeout
	}
}
