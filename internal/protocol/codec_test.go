package protocol

import (
	"encoding/json"
	"testing"

	"github.com/cardtable/holdem/internal/deck"
)

func TestDecodeChat(t *testing.T) {
	raw := []byte(`{"type":"chat","from":"alice","text":"hi"}`)
	in, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.Kind != TypeChat {
		t.Fatalf("Kind = %q, want %q", in.Kind, TypeChat)
	}
	if in.Chat.From != "alice" || in.Chat.Text != "hi" {
		t.Fatalf("Chat = %+v, want From=alice Text=hi", in.Chat)
	}
}

func TestDecodeStart(t *testing.T) {
	in, err := Decode([]byte(`{"type":"start"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.Kind != TypeStart {
		t.Fatalf("Kind = %q, want %q", in.Kind, TypeStart)
	}
}

func TestDecodeActionWithAmount(t *testing.T) {
	in, err := Decode([]byte(`{"type":"action","action":"raise","amount":20}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.Kind != TypeAction {
		t.Fatalf("Kind = %q, want %q", in.Kind, TypeAction)
	}
	if in.Action.Action != "raise" || in.Action.Amount != 20 {
		t.Fatalf("Action = %+v, want Action=raise Amount=20", in.Action)
	}
	if in.Action.IsNewHand() {
		t.Fatal("raise action incorrectly reported as new_hand")
	}
}

func TestDecodeActionWithoutAmount(t *testing.T) {
	in, err := Decode([]byte(`{"type":"action","action":"check"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.Action.Amount != 0 {
		t.Fatalf("Amount = %d, want 0", in.Action.Amount)
	}
}

func TestDecodeNewHandIsNotAGameAction(t *testing.T) {
	in, err := Decode([]byte(`{"type":"action","action":"new_hand"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !in.Action.IsNewHand() {
		t.Fatal("new_hand action not recognized")
	}
}

func TestDecodeUnknownTypeRejected(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"bogus"}`)); err == nil {
		t.Fatal("expected error for unknown frame type")
	}
}

func TestDecodeMalformedRejected(t *testing.T) {
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed frame")
	}
}

func TestEncodeErrorFrame(t *testing.T) {
	b, err := Encode(NewErrorFrame("table full"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["type"] != "error" || got["text"] != "table full" {
		t.Fatalf("got %+v", got)
	}
}

func TestEncodeChatFrame(t *testing.T) {
	b, err := Encode(NewChatOut("bob", "gg"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["type"] != "chat" || got["from"] != "bob" || got["text"] != "gg" {
		t.Fatalf("got %+v", got)
	}
}

func TestEncodeStateFrameNullableFields(t *testing.T) {
	frame := StateFrame{
		Type:          TypeState,
		Players:       []string{"alice", "bob"},
		Started:       true,
		Community:     []deck.Card{},
		Hole:          []deck.Card{},
		Pot:           30,
		Street:        "preflop",
		ToAct:         "alice",
		Winners:       nil,
		RecentActions: nil,
		CallAmount:    nil,
		Stacks:        map[string]int{"alice": 990, "bob": 980},
		Dealer:        "alice",
		SB:            "alice",
		BB:            "bob",
		MinRaise:      nil,
		AllHoles:      nil,
	}
	b, err := Encode(frame)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, field := range []string{"winners", "callAmount", "minRaise", "allHoles"} {
		if string(got[field]) != "null" {
			t.Errorf("field %s = %s, want null", field, got[field])
		}
	}
}

func TestEncodeStateFrameCallAmountPresent(t *testing.T) {
	amt := 10
	frame := StateFrame{Type: TypeState, CallAmount: &amt}
	b, err := Encode(frame)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(got["callAmount"]) != "10" {
		t.Fatalf("callAmount = %s, want 10", got["callAmount"])
	}
}

func TestEncodeStateFrameCardWireFormat(t *testing.T) {
	frame := StateFrame{
		Type: TypeState,
		Hole: []deck.Card{{Rank: deck.Ace, Suit: deck.Spades}},
	}
	b, err := Encode(frame)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(got["hole"]) != `["AS"]` {
		t.Fatalf("hole = %s, want [\"AS\"]", got["hole"])
	}
}
