package protocol

import "fmt"

// RequestKind discriminates the commands a client may push into the surface.
type RequestKind int

const (
	// RequestStop terminates the session's surface
	RequestStop RequestKind = iota
	// RequestSetChoices replaces the choice set wholesale
	RequestSetChoices
	// RequestSetInput replaces the query text
	RequestSetInput
)

// String returns the wire key of the request kind
func (k RequestKind) String() string {
	switch k {
	case RequestStop:
		return KeyStop
	case RequestSetChoices:
		return KeySetChoices
	case RequestSetInput:
		return KeySetInput
	default:
		return "unknown"
	}
}

// Request is a client command dispatched into the interaction surface.
type Request interface {
	Kind() RequestKind
}

// StopRequest asks the surface to terminate. The server synthesizes one if a
// client disconnects without sending it.
type StopRequest struct{}

// Kind implements Request
func (StopRequest) Kind() RequestKind { return RequestStop }

// SetChoicesRequest replaces the surface's choice set. The set is normalized
// (deduplicated, sorted, selection clamped) before it is applied.
type SetChoicesRequest struct {
	Choices ChoiceSet
}

// Kind implements Request
func (SetChoicesRequest) Kind() RequestKind { return RequestSetChoices }

// SetInputRequest replaces the surface's query text.
type SetInputRequest struct {
	Text string
}

// Kind implements Request
func (SetInputRequest) Kind() RequestKind { return RequestSetInput }

// DecodeRequest converts a client envelope into a request. A failure here is
// a per-line error; the connection's request loop logs it and carries on.
func DecodeRequest(msg Message) (Request, error) {
	switch msg.Key {
	case KeyStop:
		return StopRequest{}, nil
	case KeySetChoices:
		var choices ChoiceSet
		if err := msg.DecodeData(&choices); err != nil {
			return nil, err
		}
		if choices.Selected != nil && *choices.Selected < 0 {
			return nil, fmt.Errorf("negative selected index %d", *choices.Selected)
		}
		choices.Normalize()
		return SetChoicesRequest{Choices: choices}, nil
	case KeySetInput:
		var text string
		if err := msg.DecodeData(&text); err != nil {
			return nil, err
		}
		return SetInputRequest{Text: text}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, msg.Key)
	}
}

// EncodeRequest converts a request into its wire envelope. Used by clients;
// the server only decodes requests.
func EncodeRequest(req Request) (Message, error) {
	switch r := req.(type) {
	case StopRequest:
		return Message{Key: KeyStop}, nil
	case SetChoicesRequest:
		return NewMessage(KeySetChoices, r.Choices)
	case SetInputRequest:
		return NewMessage(KeySetInput, r.Text)
	default:
		return Message{}, fmt.Errorf("unencodable request type %T", req)
	}
}
