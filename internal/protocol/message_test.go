package protocol

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestMessageEncode(t *testing.T) {
	msg, err := NewMessage(KeySetInput, "hello")
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	data, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if got, want := string(data), `{"key":"set_input","data":"hello"}`+"\n"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestMessageEncodeOmitsEmptyData(t *testing.T) {
	data, err := NewBusyMessage().Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if got, want := string(data), `{"key":"busy"}`+"\n"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
	if strings.Contains(string(data), "data") {
		t.Errorf("busy message should not carry a data field, got %q", data)
	}
}

func TestControlMessageShapes(t *testing.T) {
	registered, err := NewRegisteredMessage(7)
	if err != nil {
		t.Fatalf("NewRegisteredMessage() error = %v", err)
	}
	if got, want := string(registered.Data), "7"; got != want {
		t.Errorf("registered data = %s, want %s", got, want)
	}

	tooOld, err := NewServerTooOldMessage(ProtocolVersion)
	if err != nil {
		t.Fatalf("NewServerTooOldMessage() error = %v", err)
	}
	if tooOld.Key != KeyServerTooOld {
		t.Errorf("key = %q, want %q", tooOld.Key, KeyServerTooOld)
	}
	if got, want := string(tooOld.Data), "0"; got != want {
		t.Errorf("server_too_old data = %s, want %s", got, want)
	}
}

func TestDecodeLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantKey string
		wantErr bool
	}{
		{
			name:    "key with data",
			line:    `{"key":"select","data":42}`,
			wantKey: KeySelect,
		},
		{
			name:    "key without data",
			line:    `{"key":"stop"}`,
			wantKey: KeyStop,
		},
		{
			name:    "missing key",
			line:    `{"data":42}`,
			wantErr: true,
		},
		{
			name:    "not json",
			line:    `select 42`,
			wantErr: true,
		},
		{
			name:    "empty line",
			line:    ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeLine([]byte(tt.line))
			if tt.wantErr {
				if err == nil {
					t.Errorf("DecodeLine(%q) expected error, got key %q", tt.line, msg.Key)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeLine(%q) error = %v", tt.line, err)
			}
			if msg.Key != tt.wantKey {
				t.Errorf("DecodeLine(%q).Key = %q, want %q", tt.line, msg.Key, tt.wantKey)
			}
		})
	}
}

func TestEventRoundTrip(t *testing.T) {
	id := uint64(3)
	tests := []struct {
		name  string
		event Event
	}{
		{name: "select with id", event: SelectEvent{ID: &id}},
		{name: "select nothing", event: SelectEvent{}},
		{name: "cursor move", event: CursorMoveEvent{Index: 5}},
		{name: "input change", event: InputChangeEvent{Text: "query"}},
		{name: "window closed", event: WindowClosedEvent{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := EncodeEvent(tt.event)
			if err != nil {
				t.Fatalf("EncodeEvent() error = %v", err)
			}
			line, err := msg.Encode()
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			decoded, err := DecodeLine(line)
			if err != nil {
				t.Fatalf("DecodeLine() error = %v", err)
			}
			event, err := DecodeEvent(decoded)
			if err != nil {
				t.Fatalf("DecodeEvent() error = %v", err)
			}
			if !reflect.DeepEqual(event, tt.event) {
				t.Errorf("round trip = %#v, want %#v", event, tt.event)
			}
		})
	}
}

func TestDecodeEventSelectNullData(t *testing.T) {
	msg, err := DecodeLine([]byte(`{"key":"select","data":null}`))
	if err != nil {
		t.Fatalf("DecodeLine() error = %v", err)
	}
	event, err := DecodeEvent(msg)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	sel, ok := event.(SelectEvent)
	if !ok {
		t.Fatalf("DecodeEvent() = %T, want SelectEvent", event)
	}
	if sel.ID != nil {
		t.Errorf("SelectEvent.ID = %v, want nil", *sel.ID)
	}
}

func TestDecodeEventErrors(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		unknownKey bool
	}{
		{name: "negative cursor index", line: `{"key":"cursor_move","data":-1}`},
		{name: "cursor move without data", line: `{"key":"cursor_move"}`},
		{name: "input change with number", line: `{"key":"input_change","data":5}`},
		{name: "control key is not an event", line: `{"key":"busy"}`, unknownKey: true},
		{name: "request key is not an event", line: `{"key":"stop"}`, unknownKey: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeLine([]byte(tt.line))
			if err != nil {
				t.Fatalf("DecodeLine() error = %v", err)
			}
			_, err = DecodeEvent(msg)
			if err == nil {
				t.Fatalf("DecodeEvent(%s) expected error", tt.line)
			}
			if tt.unknownKey && !errors.Is(err, ErrUnknownKey) {
				t.Errorf("DecodeEvent(%s) error = %v, want ErrUnknownKey", tt.line, err)
			}
		})
	}
}
