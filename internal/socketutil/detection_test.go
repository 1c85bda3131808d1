package socketutil

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestParseAddr(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir() error = %v", err)
	}

	tests := []struct {
		name        string
		addr        string
		wantNetwork string
		wantAddress string
		wantErr     bool
	}{
		{
			name:        "tcp host port",
			addr:        "127.0.0.1:5555",
			wantNetwork: "tcp",
			wantAddress: "127.0.0.1:5555",
		},
		{
			name:        "tcp wildcard port",
			addr:        "localhost:0",
			wantNetwork: "tcp",
			wantAddress: "localhost:0",
		},
		{
			name:        "unix prefix",
			addr:        "unix:/tmp/auswahl.sock",
			wantNetwork: "unix",
			wantAddress: "/tmp/auswahl.sock",
		},
		{
			name:        "absolute path",
			addr:        "/run/auswahl.sock",
			wantNetwork: "unix",
			wantAddress: "/run/auswahl.sock",
		},
		{
			name:        "home relative path",
			addr:        "~/.auswahl.sock",
			wantNetwork: "unix",
			wantAddress: filepath.Join(homeDir, ".auswahl.sock"),
		},
		{
			name:    "empty",
			addr:    "",
			wantErr: true,
		},
		{
			name:    "empty unix path",
			addr:    "unix:",
			wantErr: true,
		},
		{
			name:    "missing port",
			addr:    "localhost",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			network, address, err := ParseAddr(tt.addr)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAddr(%q) expected error, got %s %s", tt.addr, network, address)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddr(%q) error = %v", tt.addr, err)
			}
			if network != tt.wantNetwork || address != tt.wantAddress {
				t.Errorf("ParseAddr(%q) = (%s, %s), want (%s, %s)",
					tt.addr, network, address, tt.wantNetwork, tt.wantAddress)
			}
		})
	}
}

func TestListenAndDetectTCP(t *testing.T) {
	listener, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer listener.Close()
	go acceptAndDiscard(listener)

	addr := listener.Addr().String()
	if !DetectServer(addr) {
		t.Errorf("DetectServer(%s) = false, want true while listening", addr)
	}

	listener.Close()
	// Give the OS a moment to tear down the listener
	time.Sleep(50 * time.Millisecond)
	if DetectServer(addr) {
		t.Errorf("DetectServer(%s) = true after close", addr)
	}
}

func TestDialTCP(t *testing.T) {
	listener, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer listener.Close()
	go acceptAndDiscard(listener)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := Dial(ctx, listener.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	conn.Close()
}

func TestListenUnixCleansStaleSocket(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets not exercised on windows")
	}

	socketPath := filepath.Join(t.TempDir(), "test.sock")

	// Simulate a crashed server by leaving the socket file behind
	raw, err := net.ListenUnix("unix", &net.UnixAddr{Name: socketPath, Net: "unix"})
	if err != nil {
		t.Fatalf("ListenUnix() error = %v", err)
	}
	raw.SetUnlinkOnClose(false)
	raw.Close()

	if _, err := os.Stat(socketPath); err != nil {
		t.Fatalf("stale socket file should still exist: %v", err)
	}

	listener, err := Listen(socketPath)
	if err != nil {
		t.Fatalf("Listen() should remove the stale socket, got error = %v", err)
	}
	defer listener.Close()

	if !DetectServer(socketPath) {
		t.Errorf("DetectServer(%s) = false, want true while listening", socketPath)
	}
}

func TestListenUnixRefusesLiveSocket(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets not exercised on windows")
	}

	socketPath := filepath.Join(t.TempDir(), "live.sock")
	listener, err := Listen(socketPath)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer listener.Close()
	go acceptAndDiscard(listener)

	if _, err := Listen(socketPath); err == nil {
		t.Error("second Listen() on a live socket should fail")
	} else if !strings.Contains(err.Error(), "in use") {
		t.Logf("second Listen() failed as expected: %v", err)
	}
}

func TestDetectServerNothingListening(t *testing.T) {
	if DetectServer("127.0.0.1:1") {
		t.Error("DetectServer on a closed port should report false")
	}
	if DetectServer(filepath.Join(t.TempDir(), "missing.sock")) {
		t.Error("DetectServer on a missing socket file should report false")
	}
	if DetectServer("not an address") {
		t.Error("DetectServer on a malformed address should report false")
	}
}

// acceptAndDiscard keeps a test listener serving so dials succeed.
func acceptAndDiscard(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}
}
