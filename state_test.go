package webserial

import "testing"

func TestConnectionStateText(t *testing.T) {
	for _, st := range []ConnectionState{StateDisconnected, StateConnecting, StateConnected, StateDisconnecting} {
		text, err := st.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		var back ConnectionState
		if err := back.UnmarshalText(text); err != nil || back != st {
			t.Fatalf("%s did not survive a round trip: %v, %v", st, back, err)
		}
	}

	var st ConnectionState
	if err := st.UnmarshalText([]byte("reconnecting")); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}
