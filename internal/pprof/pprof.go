// Package pprof exposes the runtime's profiling data for debugging stuck
// sessions, either over a local HTTP endpoint or as profile files written on
// shutdown.
package pprof

import (
	"context"
	"fmt"
	"net"
	"net/http"
	netpprof "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sync"

	"github.com/codefionn/auswahl/internal/consts"
	"github.com/codefionn/auswahl/internal/logger"
)

// Config holds the profiling configuration. The zero value profiles nothing.
type Config struct {
	// HTTPAddr serves the standard /debug/pprof endpoints when non-empty
	HTTPAddr string
	// CPUProfile is a file path for a CPU profile covering Start to Stop
	CPUProfile string
	// HeapProfile is a file path for a heap profile written at Stop
	HeapProfile string
}

// Handler manages profiling over the server's lifetime.
type Handler struct {
	config   Config
	server   *http.Server
	listener net.Listener
	cpuFile  *os.File

	mu      sync.Mutex
	stopped bool
}

// NewHandler creates a handler for the given configuration.
func NewHandler(config Config) *Handler {
	return &Handler{config: config}
}

// Start begins CPU profiling and serves the HTTP endpoint when configured.
func (h *Handler) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.config.CPUProfile != "" {
		if err := os.MkdirAll(filepath.Dir(h.config.CPUProfile), 0755); err != nil {
			return fmt.Errorf("failed to create directory for CPU profile: %w", err)
		}
		f, err := os.Create(h.config.CPUProfile)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile file: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("failed to start CPU profiling: %w", err)
		}
		h.cpuFile = f
	}

	if h.config.HTTPAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", netpprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", netpprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", netpprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", netpprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", netpprof.Trace)
		mux.Handle("/debug/pprof/goroutine", netpprof.Handler("goroutine"))
		mux.Handle("/debug/pprof/heap", netpprof.Handler("heap"))

		ln, err := net.Listen("tcp", h.config.HTTPAddr)
		if err != nil {
			return fmt.Errorf("failed to bind pprof HTTP server: %w", err)
		}

		h.listener = ln
		h.server = &http.Server{Addr: h.config.HTTPAddr, Handler: mux}

		go func() {
			if err := h.server.Serve(h.listener); err != nil && err != http.ErrServerClosed {
				logger.Error("pprof server error: %v", err)
			}
		}()
		logger.Info("pprof endpoint listening on %s", ln.Addr())
	}

	return nil
}

// Stop finishes the CPU profile, writes the heap profile and shuts the HTTP
// endpoint down.
func (h *Handler) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}
	h.stopped = true

	var errs []error

	if h.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := h.cpuFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close CPU profile: %w", err))
		}
		h.cpuFile = nil
	}

	if h.config.HeapProfile != "" {
		if err := writeHeapProfile(h.config.HeapProfile); err != nil {
			errs = append(errs, err)
		}
	}

	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), consts.Timeout5Seconds)
		defer cancel()
		if err := h.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown pprof server: %w", err))
		}
		h.server = nil
		h.listener = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("profiling shutdown failed: %v", errs)
	}
	return nil
}

// writeHeapProfile captures the live heap into a file.
func writeHeapProfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for heap profile: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heap profile file: %w", err)
	}
	defer f.Close()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write heap profile: %w", err)
	}
	return nil
}
