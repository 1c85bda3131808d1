// Package protocol defines the wire protocol and data model shared by the
// auswahl server, the interaction surface, and clients.
//
// # Message Protocol
//
// Communication uses JSON messages delimited by newlines, both directions.
// The first line of a connection is a bare registration object:
//
//	{"protocol_version":0,"subscribe_to":["select","window_closed"],"matcher":"fuzzy"}\n
//
// Every following message is a key/data envelope. The data field is omitted
// when a message carries no payload:
//
//	{"key":"set_choices","data":{"options":[{"id":0,"text":"apple"}]}}\n
//	{"key":"registered","data":0}\n
//	{"key":"busy"}\n
//
// Server to client: busy, registered, server_too_old, plus the subscribed
// surface events (select, cursor_move, input_change, window_closed).
// Client to server: stop, set_choices, set_input.
//
// # Versioning
//
// The registration carries a single protocol version byte. The server rejects
// registrations whose version exceeds ProtocolVersion with a server_too_old
// message and accepts anything at or below it. Unknown subscription flags and
// matcher kinds are registration errors, not versioning concerns.
//
// # Data Model
//
// Choices form an ordered, deduplicated set sorted by (priority, id, text).
// The optional selected field of a ChoiceSet is a positional index into that
// order; Clamp re-establishes its validity after every membership or order
// change, and Normalize is the full dedupe+sort+clamp pass applied when a set
// arrives from a client.
package protocol
