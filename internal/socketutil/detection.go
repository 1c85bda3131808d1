// Package socketutil resolves listen addresses and probes for live servers.
//
// An address is either a TCP host:port ("127.0.0.1:5555") or a unix socket
// path ("/run/user/1000/auswahl.sock", "~/.auswahl.sock" or with an explicit
// "unix:" prefix). The server and every client resolve addresses through
// ParseAddr so the two sides can never disagree on the syntax.
package socketutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/codefionn/auswahl/internal/consts"
	"github.com/codefionn/auswahl/internal/logger"
)

// ParseAddr splits an address into a network ("tcp" or "unix") and the
// address to bind or dial. A leading "unix:", "/" or "~" selects a unix
// socket; everything else must be a valid host:port.
func ParseAddr(addr string) (network, address string, err error) {
	if addr == "" {
		return "", "", fmt.Errorf("empty listen address")
	}

	if path, ok := strings.CutPrefix(addr, "unix:"); ok {
		if path == "" {
			return "", "", fmt.Errorf("empty unix socket path in %q", addr)
		}
		expanded, err := expandHome(path)
		if err != nil {
			return "", "", err
		}
		return "unix", expanded, nil
	}

	if strings.HasPrefix(addr, "/") || strings.HasPrefix(addr, "~") {
		expanded, err := expandHome(addr)
		if err != nil {
			return "", "", err
		}
		return "unix", expanded, nil
	}

	if _, _, err := net.SplitHostPort(addr); err != nil {
		return "", "", fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return "tcp", addr, nil
}

// expandHome replaces a leading ~ with the user's home directory
func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand ~ in %q: %w", path, err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// Listen binds the address. For unix sockets a leftover file from a crashed
// server is removed first, but only when nothing answers on it.
func Listen(addr string) (net.Listener, error) {
	network, address, err := ParseAddr(addr)
	if err != nil {
		return nil, err
	}

	if network == "unix" {
		cleanStaleSocket(address)
	}

	listener, err := net.Listen(network, address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s %s: %w", network, address, err)
	}
	return listener, nil
}

// Dial connects to the server at addr. The context bounds the attempt; pass
// one with a deadline for anything user-facing.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	network, address, err := ParseAddr(addr)
	if err != nil {
		return nil, err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s %s: %w", network, address, err)
	}
	return conn, nil
}

// DetectServer reports whether a live server answers at addr. Used by
// clients to fail fast and by Listen's stale socket cleanup.
func DetectServer(addr string) bool {
	network, address, err := ParseAddr(addr)
	if err != nil {
		logger.Debug("server detection skipped, bad address: %v", err)
		return false
	}

	if network == "unix" && !socketFileExists(address) {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), consts.DetectionTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		logger.Debug("no server answering at %s %s: %v", network, address, err)
		return false
	}
	conn.Close()
	return true
}

// cleanStaleSocket removes a dead unix socket file so a fresh server can
// bind. A file with a live server behind it is left alone; Listen will then
// fail with address-in-use instead of silently stealing the address.
func cleanStaleSocket(path string) {
	if !socketFileExists(path) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), consts.DetectionTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err == nil {
		conn.Close()
		return
	}

	logger.Info("removing stale socket file: %s", path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove stale socket file %s: %v", path, err)
	}
}
