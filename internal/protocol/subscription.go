package protocol

import (
	"fmt"
	"strings"
)

// SubscriptionMask records which event kinds a session wants forwarded.
// Events outside the mask are still produced by the surface; the connection
// drops them before they reach the wire.
type SubscriptionMask uint8

const (
	// SubscribeSelect forwards confirmations of the highlighted choice
	SubscribeSelect SubscriptionMask = 1 << iota
	// SubscribeCursorMove forwards highlight movement
	SubscribeCursorMove
	// SubscribeInputChange forwards query text edits
	SubscribeInputChange
	// SubscribeWindowClosed forwards the final closed notification
	SubscribeWindowClosed
)

// DefaultSubscription is applied when a registration omits subscribe_to.
const DefaultSubscription = SubscribeSelect | SubscribeWindowClosed

// subscriptionFlags maps wire names to mask bits. The names are the event
// message keys, so a client subscribes to exactly what it will later parse.
var subscriptionFlags = []struct {
	name string
	bit  SubscriptionMask
}{
	{KeySelect, SubscribeSelect},
	{KeyCursorMove, SubscribeCursorMove},
	{KeyInputChange, SubscribeInputChange},
	{KeyWindowClosed, SubscribeWindowClosed},
}

// ParseSubscription builds a mask from wire flag names. A nil slice means the
// field was absent and yields the default; an empty slice is an explicit
// subscription to nothing. Unknown names are rejected rather than ignored so
// a typo does not silently drop events.
func ParseSubscription(names []string) (SubscriptionMask, error) {
	if names == nil {
		return DefaultSubscription, nil
	}
	var mask SubscriptionMask
	for _, name := range names {
		bit, ok := subscriptionBit(name)
		if !ok {
			return 0, fmt.Errorf("unknown subscription flag %q", name)
		}
		mask |= bit
	}
	return mask, nil
}

func subscriptionBit(name string) (SubscriptionMask, bool) {
	for _, f := range subscriptionFlags {
		if f.name == name {
			return f.bit, true
		}
	}
	return 0, false
}

// Wants reports whether events of the given kind pass the mask.
func (m SubscriptionMask) Wants(kind EventKind) bool {
	switch kind {
	case EventSelect:
		return m&SubscribeSelect != 0
	case EventCursorMove:
		return m&SubscribeCursorMove != 0
	case EventInputChange:
		return m&SubscribeInputChange != 0
	case EventWindowClosed:
		return m&SubscribeWindowClosed != 0
	default:
		return false
	}
}

// Names returns the wire flag names set in the mask, in declaration order.
func (m SubscriptionMask) Names() []string {
	names := make([]string, 0, len(subscriptionFlags))
	for _, f := range subscriptionFlags {
		if m&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	return names
}

// String renders the mask for logs, e.g. "select|window_closed".
func (m SubscriptionMask) String() string {
	if m == 0 {
		return "none"
	}
	return strings.Join(m.Names(), "|")
}
