package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/netutil"

	"github.com/codefionn/auswahl/internal/config"
	"github.com/codefionn/auswahl/internal/consts"
	"github.com/codefionn/auswahl/internal/logger"
	"github.com/codefionn/auswahl/internal/socketutil"
)

// Server accepts client connections and runs one selection session at a time.
type Server struct {
	cfg     *config.Config
	lock    *SessionLock
	worker  *Worker
	nextID  atomic.Uint64

	// listener is what acceptLoop accepts from, raw is the unwrapped
	// listener that supports deadlines.
	listener net.Listener
	raw      net.Listener

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	conns   map[uint64]*Conn

	stopChan chan struct{}
	stopOnce sync.Once
	acceptWg sync.WaitGroup
	connWg   sync.WaitGroup
}

// NewServer creates a server that starts interaction surfaces with the given
// factory. Call Start to begin accepting connections.
func NewServer(cfg *config.Config, factory SurfaceFactory) *Server {
	return &Server{
		cfg:      cfg,
		lock:     NewSessionLock(),
		worker:   NewWorker(factory),
		conns:    make(map[uint64]*Conn),
		stopChan: make(chan struct{}),
	}
}

// Start binds the configured address and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	listener, err := socketutil.Listen(s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}

	s.raw = listener
	s.listener = listener
	if s.cfg.MaxConnections > 0 {
		s.listener = netutil.LimitListener(listener, s.cfg.MaxConnections)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.worker.Start()
	s.running = true

	logger.Info("Server listening on %s", s.raw.Addr())

	s.acceptWg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop shuts the server down: no new connections are accepted, live
// connections are closed, and the current surface is wound down.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.stopOnce.Do(func() {
		logger.Info("Server stopping")

		close(s.stopChan)
		s.cancel()
		s.listener.Close()
		s.acceptWg.Wait()

		s.mu.Lock()
		conns := make([]*Conn, 0, len(s.conns))
		for _, c := range s.conns {
			conns = append(conns, c)
		}
		s.mu.Unlock()
		for _, c := range conns {
			c.forceClose()
		}

		done := make(chan struct{})
		go func() {
			s.connWg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(consts.ShutdownGrace):
			logger.Warn("Timed out waiting for connections to finish")
		}

		s.worker.Stop()
		logger.Info("Server stopped")
	})

	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.raw == nil {
		return nil
	}
	return s.raw.Addr()
}

// acceptLoop accepts connections until the server stops. The listener
// deadline keeps the loop responsive to stopChan even when nobody connects.
func (s *Server) acceptLoop() {
	defer s.acceptWg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		if dl, ok := s.raw.(interface{ SetDeadline(time.Time) error }); ok {
			dl.SetDeadline(time.Now().Add(consts.AcceptPollInterval))
		}

		conn, err := s.listener.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Error("Failed to accept connection: %v", err)
			continue
		}

		id := s.nextID.Add(1) - 1
		logger.Info("Session %d: accepted connection from %s", id, conn.RemoteAddr())

		client := newConn(id, conn, s.lock, s.worker, s.registrationTimeout())
		s.trackConn(client)

		s.connWg.Add(1)
		go func() {
			defer s.connWg.Done()
			defer s.untrackConn(client.id)
			client.serve(s.ctx)
		}()
	}
}

func (s *Server) registrationTimeout() time.Duration {
	return time.Duration(s.cfg.RegistrationTimeout) * time.Second
}

func (s *Server) trackConn(c *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c.id] = c
}

func (s *Server) untrackConn(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, id)
}
