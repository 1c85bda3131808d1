package protocol

import "fmt"

// EventKind discriminates the events the interaction surface produces.
type EventKind int

const (
	// EventSelect is a confirmation of the highlighted choice (or of nothing)
	EventSelect EventKind = iota
	// EventCursorMove reports the selection landing on a positional index
	EventCursorMove
	// EventInputChange reports the query text changing
	EventInputChange
	// EventWindowClosed reports the surface terminating
	EventWindowClosed
)

// String returns the wire key of the event kind
func (k EventKind) String() string {
	switch k {
	case EventSelect:
		return KeySelect
	case EventCursorMove:
		return KeyCursorMove
	case EventInputChange:
		return KeyInputChange
	case EventWindowClosed:
		return KeyWindowClosed
	default:
		return "unknown"
	}
}

// Event is a user-generated occurrence flowing from the interaction surface
// to the connection that owns the session.
type Event interface {
	Kind() EventKind
}

// SelectEvent confirms the choice with the given id, or confirms with
// nothing highlighted when ID is nil.
type SelectEvent struct {
	ID *uint64
}

// Kind implements Event
func (SelectEvent) Kind() EventKind { return EventSelect }

// CursorMoveEvent reports the selection moving to a positional index.
type CursorMoveEvent struct {
	Index int
}

// Kind implements Event
func (CursorMoveEvent) Kind() EventKind { return EventCursorMove }

// InputChangeEvent reports the current query text after a change.
type InputChangeEvent struct {
	Text string
}

// Kind implements Event
func (InputChangeEvent) Kind() EventKind { return EventInputChange }

// WindowClosedEvent reports that the surface terminated. It is always the
// last event of a session.
type WindowClosedEvent struct{}

// Kind implements Event
func (WindowClosedEvent) Kind() EventKind { return EventWindowClosed }

// EncodeEvent converts a surface event into its wire envelope.
func EncodeEvent(ev Event) (Message, error) {
	switch e := ev.(type) {
	case SelectEvent:
		if e.ID == nil {
			return Message{Key: KeySelect}, nil
		}
		return NewMessage(KeySelect, *e.ID)
	case CursorMoveEvent:
		return NewMessage(KeyCursorMove, e.Index)
	case InputChangeEvent:
		return NewMessage(KeyInputChange, e.Text)
	case WindowClosedEvent:
		return Message{Key: KeyWindowClosed}, nil
	default:
		return Message{}, fmt.Errorf("unencodable event type %T", ev)
	}
}

// DecodeEvent converts a server envelope back into an event. Keys outside
// the event set return ErrUnknownKey so callers can route control messages
// separately.
func DecodeEvent(msg Message) (Event, error) {
	switch msg.Key {
	case KeySelect:
		if len(msg.Data) == 0 || string(msg.Data) == "null" {
			return SelectEvent{}, nil
		}
		var id uint64
		if err := msg.DecodeData(&id); err != nil {
			return nil, err
		}
		return SelectEvent{ID: &id}, nil
	case KeyCursorMove:
		var index int
		if err := msg.DecodeData(&index); err != nil {
			return nil, err
		}
		if index < 0 {
			return nil, fmt.Errorf("negative cursor index %d", index)
		}
		return CursorMoveEvent{Index: index}, nil
	case KeyInputChange:
		var text string
		if err := msg.DecodeData(&text); err != nil {
			return nil, err
		}
		return InputChangeEvent{Text: text}, nil
	case KeyWindowClosed:
		return WindowClosedEvent{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, msg.Key)
	}
}
