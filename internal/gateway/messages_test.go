package gateway

import "testing"

func TestParseClientMessage_DecodesActionFields(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"action":"select_headstart","code":"ABC123","headstart":3}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if msg.Action != ActionSelectHeadstart {
		t.Fatalf("unexpected action %q", msg.Action)
	}
	if msg.Code != "ABC123" {
		t.Fatalf("unexpected code %q", msg.Code)
	}
	if msg.Headstart == nil || *msg.Headstart != 3 {
		t.Fatalf("headstart not decoded: %v", msg.Headstart)
	}
}

func TestParseClientMessage_ZeroAnswerIsPresent(t *testing.T) {
	// Option 0 is a valid answer; a zero value must not read as absent.
	msg, err := ParseClientMessage([]byte(`{"action":"submit_answer","answer":0}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if msg.Answer == nil || *msg.Answer != 0 {
		t.Fatalf("answer 0 not decoded as present: %v", msg.Answer)
	}

	msg, err = ParseClientMessage([]byte(`{"action":"submit_answer"}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if msg.Answer != nil {
		t.Fatalf("absent answer decoded as %d", *msg.Answer)
	}
}

func TestParseClientMessage_Rejects(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"invalid json", `{"action":`},
		{"missing action", `{"code":"ABC123"}`},
		{"empty object", `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseClientMessage([]byte(tc.data)); err == nil {
				t.Fatalf("expected error for %q", tc.data)
			}
		})
	}
}
