// Package server implements the selection service reachable over a local
// socket.
//
// The server accepts line-delimited JSON connections, admits one client at a
// time to the shared interaction surface, and relays user events back to the
// admitted client.
//
// # Architecture
//
// The package is built from four cooperating pieces:
//
//   - Server: binds the listener, assigns session ids, and spawns one
//     connection handler per accepted connection
//   - SessionLock: a single-owner admission gate; holders of the lock own the
//     interaction surface until they release it
//   - Worker: a single goroutine that runs interaction surfaces strictly one
//     at a time, handing a dispatch handle back to the admitted connection
//   - Conn: the per-connection handler running the registration handshake,
//     the event forwarder, and the request loop
//
// # Connection Lifecycle
//
// A connection moves through the following stages:
//
//  1. Read one registration line and parse it; malformed registrations close
//     the connection without a wire notice
//  2. Reject clients whose protocol version is newer than the server's with
//     server_too_old, then close
//  3. Try the session lock; on contention send busy once, then wait
//  4. Hand the session off to the worker and wait for the surface handle
//  5. Confirm admission with registered carrying the session id
//  6. Forward surface events (filtered by the client's subscription) while
//     relaying client requests to the surface
//  7. On client stop or disconnect, wind the surface down, flush the final
//     window_closed event, and release the lock
//
// A client that disconnects without sending stop still causes exactly one
// synthesized stop dispatch, so the surface never outlives its session.
//
// Usage
//
//	srv := server.NewServer(cfg, factory)
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Wait for shutdown signal
//	<-ctx.Done()
//
//	if err := srv.Stop(); err != nil {
//	    log.Fatal(err)
//	}
package server
