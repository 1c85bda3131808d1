package protocol

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecodeRequestStop(t *testing.T) {
	msg, err := DecodeLine([]byte(`{"key":"stop"}`))
	if err != nil {
		t.Fatalf("DecodeLine() error = %v", err)
	}
	req, err := DecodeRequest(msg)
	if err != nil {
		t.Fatalf("DecodeRequest() error = %v", err)
	}
	if _, ok := req.(StopRequest); !ok {
		t.Errorf("DecodeRequest() = %T, want StopRequest", req)
	}
}

func TestDecodeRequestSetInput(t *testing.T) {
	msg, err := DecodeLine([]byte(`{"key":"set_input","data":"3 + 4"}`))
	if err != nil {
		t.Fatalf("DecodeLine() error = %v", err)
	}
	req, err := DecodeRequest(msg)
	if err != nil {
		t.Fatalf("DecodeRequest() error = %v", err)
	}
	input, ok := req.(SetInputRequest)
	if !ok {
		t.Fatalf("DecodeRequest() = %T, want SetInputRequest", req)
	}
	if input.Text != "3 + 4" {
		t.Errorf("SetInputRequest.Text = %q, want %q", input.Text, "3 + 4")
	}
}

func TestDecodeRequestSetChoicesNormalizes(t *testing.T) {
	line := `{"key":"set_choices","data":{"options":[` +
		`{"priority":0,"id":2,"text":"beta"},` +
		`{"priority":0,"id":1,"text":"alpha"},` +
		`{"priority":0,"id":1,"text":"alpha"}],` +
		`"selected":7}}`
	msg, err := DecodeLine([]byte(line))
	if err != nil {
		t.Fatalf("DecodeLine() error = %v", err)
	}
	req, err := DecodeRequest(msg)
	if err != nil {
		t.Fatalf("DecodeRequest() error = %v", err)
	}
	set, ok := req.(SetChoicesRequest)
	if !ok {
		t.Fatalf("DecodeRequest() = %T, want SetChoicesRequest", req)
	}
	wantOptions := []Choice{
		{Priority: 0, ID: 1, Text: "alpha"},
		{Priority: 0, ID: 2, Text: "beta"},
	}
	if !reflect.DeepEqual(set.Choices.Options, wantOptions) {
		t.Errorf("options = %v, want %v", set.Choices.Options, wantOptions)
	}
	if set.Choices.Selected == nil || *set.Choices.Selected != 1 {
		t.Errorf("selected = %v, want clamped to 1", set.Choices.Selected)
	}
}

func TestDecodeRequestErrors(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		unknownKey bool
	}{
		{name: "negative selected", line: `{"key":"set_choices","data":{"options":[],"selected":-1}}`},
		{name: "set_choices without data", line: `{"key":"set_choices"}`},
		{name: "set_input with object", line: `{"key":"set_input","data":{}}`},
		{name: "event key is not a request", line: `{"key":"select"}`, unknownKey: true},
		{name: "control key is not a request", line: `{"key":"registered","data":0}`, unknownKey: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeLine([]byte(tt.line))
			if err != nil {
				t.Fatalf("DecodeLine() error = %v", err)
			}
			_, err = DecodeRequest(msg)
			if err == nil {
				t.Fatalf("DecodeRequest(%s) expected error", tt.line)
			}
			if tt.unknownKey && !errors.Is(err, ErrUnknownKey) {
				t.Errorf("DecodeRequest(%s) error = %v, want ErrUnknownKey", tt.line, err)
			}
		})
	}
}

func TestEncodeRequestRoundTrip(t *testing.T) {
	selected := 0
	tests := []struct {
		name    string
		request Request
	}{
		{name: "stop", request: StopRequest{}},
		{name: "set input", request: SetInputRequest{Text: "filter"}},
		{
			name: "set choices",
			request: SetChoicesRequest{Choices: ChoiceSet{
				Options:  []Choice{{Priority: -2, ID: 4, Text: "entry"}},
				Selected: &selected,
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := EncodeRequest(tt.request)
			if err != nil {
				t.Fatalf("EncodeRequest() error = %v", err)
			}
			decoded, err := DecodeRequest(msg)
			if err != nil {
				t.Fatalf("DecodeRequest() error = %v", err)
			}
			if !reflect.DeepEqual(decoded, tt.request) {
				t.Errorf("round trip = %#v, want %#v", decoded, tt.request)
			}
		})
	}
}
