package protocol

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the highest handshake version this build understands.
// Clients announcing a newer version are turned away with a server_too_old
// notice so they can tell the user to upgrade the server.
const ProtocolVersion uint8 = 0

// MatcherKind selects how the surface ranks choices against the query.
type MatcherKind int

const (
	// MatcherNone keeps the client-supplied order untouched
	MatcherNone MatcherKind = iota
	// MatcherFuzzy re-ranks choices by fuzzy match score
	MatcherFuzzy
)

// String returns the wire name of the matcher kind
func (k MatcherKind) String() string {
	switch k {
	case MatcherNone:
		return "none"
	case MatcherFuzzy:
		return "fuzzy"
	default:
		return "unknown"
	}
}

// ParseMatcherKind parses a wire matcher name. The empty string selects the
// fuzzy default, mirroring an absent field in the registration.
func ParseMatcherKind(name string) (MatcherKind, error) {
	switch name {
	case "":
		return MatcherFuzzy, nil
	case "none":
		return MatcherNone, nil
	case "fuzzy":
		return MatcherFuzzy, nil
	default:
		return 0, fmt.Errorf("unknown matcher %q", name)
	}
}

// Registration is the first line a client sends. It is a bare JSON object,
// not a key/data envelope; everything after it uses envelopes.
type Registration struct {
	Version   uint8
	Subscribe SubscriptionMask
	Matcher   MatcherKind
}

// registrationWire is the JSON shape of the registration line. Unknown fields
// are ignored so older servers keep accepting newer clients of the same
// protocol version.
type registrationWire struct {
	ProtocolVersion *uint8   `json:"protocol_version"`
	SubscribeTo     []string `json:"subscribe_to"`
	Matcher         string   `json:"matcher,omitempty"`
}

// ParseRegistration decodes the registration line. subscribe_to distinguishes
// absent (default subscription) from an explicit empty array (no events).
func ParseRegistration(line []byte) (Registration, error) {
	var wire registrationWire
	if err := json.Unmarshal(line, &wire); err != nil {
		return Registration{}, fmt.Errorf("malformed registration: %w", err)
	}
	if wire.ProtocolVersion == nil {
		return Registration{}, fmt.Errorf("registration missing protocol_version")
	}
	mask, err := ParseSubscription(wire.SubscribeTo)
	if err != nil {
		return Registration{}, err
	}
	matcher, err := ParseMatcherKind(wire.Matcher)
	if err != nil {
		return Registration{}, err
	}
	return Registration{
		Version:   *wire.ProtocolVersion,
		Subscribe: mask,
		Matcher:   matcher,
	}, nil
}

// EncodeRegistration renders the registration line, newline-terminated.
// Clients always spell their subscription out instead of leaning on the
// server default.
func EncodeRegistration(reg Registration) ([]byte, error) {
	version := reg.Version
	wire := registrationWire{
		ProtocolVersion: &version,
		SubscribeTo:     reg.Subscribe.Names(),
		Matcher:         reg.Matcher.String(),
	}
	if wire.SubscribeTo == nil {
		wire.SubscribeTo = []string{}
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
