package protocol

import (
	"reflect"
	"testing"
)

func TestParseRegistration(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Registration
		wantErr bool
	}{
		{
			name: "full registration",
			line: `{"protocol_version": 0, "subscribe_to": ["select", "window_closed"], "matcher": "none"}`,
			want: Registration{
				Version:   0,
				Subscribe: SubscribeSelect | SubscribeWindowClosed,
				Matcher:   MatcherNone,
			},
		},
		{
			name: "absent subscription and matcher use defaults",
			line: `{"protocol_version": 0}`,
			want: Registration{
				Version:   0,
				Subscribe: DefaultSubscription,
				Matcher:   MatcherFuzzy,
			},
		},
		{
			name: "explicit empty subscription",
			line: `{"protocol_version": 0, "subscribe_to": []}`,
			want: Registration{
				Version:   0,
				Subscribe: 0,
				Matcher:   MatcherFuzzy,
			},
		},
		{
			name: "newer version parses for the server to reject",
			line: `{"protocol_version": 9, "subscribe_to": ["select"]}`,
			want: Registration{
				Version:   9,
				Subscribe: SubscribeSelect,
				Matcher:   MatcherFuzzy,
			},
		},
		{
			name: "unknown top level fields ignored",
			line: `{"protocol_version": 0, "client_name": "dmenu"}`,
			want: Registration{
				Version:   0,
				Subscribe: DefaultSubscription,
				Matcher:   MatcherFuzzy,
			},
		},
		{
			name:    "missing protocol_version",
			line:    `{"subscribe_to": ["select"]}`,
			wantErr: true,
		},
		{
			name:    "unknown matcher",
			line:    `{"protocol_version": 0, "matcher": "regex"}`,
			wantErr: true,
		},
		{
			name:    "unknown subscription flag",
			line:    `{"protocol_version": 0, "subscribe_to": ["resize"]}`,
			wantErr: true,
		},
		{
			name:    "not json",
			line:    `register please`,
			wantErr: true,
		},
		{
			name:    "envelope instead of bare object still missing version",
			line:    `{"key": "register"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := ParseRegistration([]byte(tt.line))
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseRegistration(%s) expected error, got %+v", tt.line, reg)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRegistration(%s) error = %v", tt.line, err)
			}
			if !reflect.DeepEqual(reg, tt.want) {
				t.Errorf("ParseRegistration(%s) = %+v, want %+v", tt.line, reg, tt.want)
			}
		})
	}
}

func TestEncodeRegistrationRoundTrip(t *testing.T) {
	original := Registration{
		Version:   ProtocolVersion,
		Subscribe: SubscribeSelect | SubscribeInputChange,
		Matcher:   MatcherNone,
	}
	line, err := EncodeRegistration(original)
	if err != nil {
		t.Fatalf("EncodeRegistration() error = %v", err)
	}
	if line[len(line)-1] != '\n' {
		t.Error("encoded registration should end with a newline")
	}
	decoded, err := ParseRegistration(line)
	if err != nil {
		t.Fatalf("ParseRegistration() error = %v", err)
	}
	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}
}

func TestEncodeRegistrationEmptySubscription(t *testing.T) {
	line, err := EncodeRegistration(Registration{Version: 0, Matcher: MatcherFuzzy})
	if err != nil {
		t.Fatalf("EncodeRegistration() error = %v", err)
	}
	decoded, err := ParseRegistration(line)
	if err != nil {
		t.Fatalf("ParseRegistration() error = %v", err)
	}
	if decoded.Subscribe != 0 {
		t.Errorf("empty mask round trip = %v, want explicit empty subscription", decoded.Subscribe)
	}
}

func TestParseMatcherKind(t *testing.T) {
	tests := []struct {
		input   string
		want    MatcherKind
		wantErr bool
	}{
		{input: "", want: MatcherFuzzy},
		{input: "fuzzy", want: MatcherFuzzy},
		{input: "none", want: MatcherNone},
		{input: "Fuzzy", wantErr: true},
		{input: "exact", wantErr: true},
	}

	for _, tt := range tests {
		kind, err := ParseMatcherKind(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMatcherKind(%q) expected error, got %v", tt.input, kind)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMatcherKind(%q) error = %v", tt.input, err)
			continue
		}
		if kind != tt.want {
			t.Errorf("ParseMatcherKind(%q) = %v, want %v", tt.input, kind, tt.want)
		}
	}
}
