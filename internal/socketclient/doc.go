// Package socketclient provides a client library for driving picker sessions
// over the auswahl socket server.
//
// The library is what the example clients and the integration tests are built
// on: it dials the server, registers a session, streams the choices to show,
// and hands the user's selection back as events.
//
// # Session Lifecycle
//
// A client maps onto exactly one picker session:
//
//  1. Connect dials the server (TCP host:port or a unix socket path).
//  2. Register sends the registration line and waits for admission. While
//     another session holds the picker the server answers busy; the client
//     surfaces that via the busy callback and keeps waiting until the
//     registration context ends.
//  3. SetChoices, SetInput and Stop steer the live picker.
//  4. Events delivers the user's actions until the channel closes, which
//     marks the end of the session.
//
// Basic Usage
//
//	client := socketclient.NewClient("127.0.0.1:5555")
//	ctx := context.Background()
//
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	_, err := client.Register(ctx, protocol.Registration{
//	    Version:   protocol.ProtocolVersion,
//	    Subscribe: protocol.SubscribeSelect | protocol.SubscribeWindowClosed,
//	    Matcher:   protocol.MatcherFuzzy,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.SetChoices(protocol.ChoiceSet{Options: []protocol.Choice{
//	    {ID: 1, Text: "open"},
//	    {ID: 2, Text: "save"},
//	}})
//
//	for event := range client.Events() {
//	    if sel, ok := event.(protocol.SelectEvent); ok {
//	        fmt.Println(sel.ID)
//	        client.Stop()
//	    }
//	}
//
// # Events
//
// The server only forwards the event kinds named in the registration's
// subscription, so the channel carries exactly what was asked for. It is
// buffered; a client that stops draining it eventually stalls the read loop,
// and the server drops that client once its own queue fills. The channel is
// closed when the session is over. Sessions subscribed to window_closed see
// that event last, which makes
//
//	for event := range client.Events() { ... }
//
// a complete session loop.
//
// # Protocol Version
//
// Register announces the protocol version from the Registration value. A
// server that only speaks an older version answers with its highest supported
// version and drops the connection; that surfaces as a *ServerTooOldError.
//
// # No Reconnection
//
// The client never reconnects on its own. A picker session is interactive
// and one-shot: once the transport drops, the window is gone and the
// selection with it, and silently opening a fresh session would present the
// user with a picker the program is no longer waiting on. Callers who want a
// new session create a new client.
//
// # Thread Safety
//
// The request methods and Close may be called from multiple goroutines.
// Connect and Register are not concurrency-safe against each other; run the
// setup sequence from one goroutine, then share the client.
package socketclient
