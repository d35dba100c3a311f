package protocol

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestEncodeDecodeKinds(t *testing.T) {
	cases := []Envelope{
		Chat{ID: "msg-1", SenderID: "p1", SenderName: "Alice", Text: "hi"},
		UserJoined{Participant: Participant{ID: "p2", Name: "Bob"}},
		UserLeft{ID: "p2", Name: "Bob", Reason: ReasonKicked},
		AllParticipants{Participants: []Participant{
			{ID: "demo", Name: "Host", IsHost: true},
			{ID: "p1", Name: "Alice"},
		}},
		NameTaken{Name: "alice"},
		Kick{By: "Host"},
		PromoteHost{TargetID: "p1", PromoterName: "Host"},
		CallRequest{CallerID: "p1", CallerName: "Alice"},
		CallAccepted{CalleeID: "demo"},
		CallRejected{Reason: RejectBusy},
		CallEnded{FromID: "p1", Reason: EndMediaUnavailable},
	}

	for _, want := range cases {
		t.Run(string(want.Kind()), func(t *testing.T) {
			data, err := Encode(want)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := Decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round trip mismatch: got %#v want %#v", got, want)
			}
		})
	}
}

func TestWireShape(t *testing.T) {
	data, err := Encode(Kick{By: "Host"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var raw map[string]any
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["type"] != "kick" {
		t.Fatalf("expected type kick, got %v", raw["type"])
	}
	if _, ok := raw["payload"]; !ok {
		t.Fatal("payload field missing")
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	data, err := msgpack.Marshal(map[string]any{"type": "call-failed", "payload": nil})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := Decode(data); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrEmptyEnvelope) {
		t.Fatalf("expected ErrEmptyEnvelope, got %v", err)
	}
	if _, err := Decode([]byte{0xc1}); err == nil {
		t.Fatal("expected error for malformed bytes")
	}
	if _, err := Encode(nil); !errors.Is(err, ErrEmptyEnvelope) {
		t.Fatalf("expected ErrEmptyEnvelope on nil encode, got %v", err)
	}
}
