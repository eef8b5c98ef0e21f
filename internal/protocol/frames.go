// Package protocol defines the JSON-over-websocket frame shapes exchanged
// between a client and the session manager (spec §6.2), plus the
// Encode/Decode helpers that sniff a frame's "type" discriminator.
package protocol

import (
	"github.com/cardtable/holdem/internal/deck"
	"github.com/cardtable/holdem/internal/game"
)

// Inbound frame type discriminators.
const (
	TypeChat   = "chat"
	TypeStart  = "start"
	TypeAction = "action"
)

// Outbound frame type discriminators.
const (
	TypeState = "state"
	TypeError = "error"
)

// ChatIn is the inbound `{type:"chat", from, text}` frame.
type ChatIn struct {
	Type string `json:"type"`
	From string `json:"from"`
	Text string `json:"text"`
}

// StartIn is the inbound `{type:"start"}` frame: request to deal a hand.
type StartIn struct {
	Type string `json:"type"`
}

// ActionIn is the inbound `{type:"action", action, amount?}` frame. Action
// is one of the five game.ActionType wire names, or the pseudo-action
// "new_hand" (NewHandAction), which is not a betting action at all — it
// asks the session manager to deal a new hand. The session manager starts
// one whatever street the current hand is on; it does not wait for showdown.
type ActionIn struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

// NewHandAction is the "action" value that requests the next hand rather
// than a betting action against the current one.
const NewHandAction = "new_hand"

// IsNewHand reports whether an ActionIn frame is the new-hand pseudo-action
// rather than a betting action to dispatch to a game.Table.
func (a ActionIn) IsNewHand() bool {
	return a.Action == NewHandAction
}

// ChatOut is the outbound `{type:"chat", from, text}` frame.
type ChatOut struct {
	Type string `json:"type"`
	From string `json:"from"`
	Text string `json:"text"`
}

// NewChatOut builds a chat frame with the type discriminator set.
func NewChatOut(from, text string) ChatOut {
	return ChatOut{Type: TypeChat, From: from, Text: text}
}

// ErrorFrame is the outbound `{type:"error", text}` frame.
type ErrorFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewErrorFrame builds an error frame with the type discriminator set.
func NewErrorFrame(text string) ErrorFrame {
	return ErrorFrame{Type: TypeError, Text: text}
}

// StateFrame is the outbound `{type:"state", ...}` per-connection
// projection of a table (spec §6.2/§4.4). Every field is populated by the
// session manager's broadcast step, which decides per-connection what is
// visible (own hole cards always, others' only at showdown via AllHoles,
// CallAmount/MinRaise only for the connection whose nickname is ToAct,
// ShowdownOrder only at showdown).
type StateFrame struct {
	Type          string              `json:"type"`
	Players       []string            `json:"players"`
	Started       bool                `json:"started"`
	Community     []deck.Card         `json:"community"`
	Hole          []deck.Card         `json:"hole"`
	Pot           int                 `json:"pot"`
	Street        string              `json:"street"`
	ToAct         string              `json:"toAct"`
	Winners       []string            `json:"winners"`
	RecentActions []game.ActionRecord `json:"recentActions"`
	CallAmount    *int                `json:"callAmount"`
	Stacks        map[string]int      `json:"stacks"`
	Dealer        string              `json:"dealer"`
	SB            string              `json:"sb"`
	BB            string              `json:"bb"`
	MinRaise      *int                `json:"minRaise"`
	AllHoles      map[string][]deck.Card `json:"allHoles"`
	ShowdownOrder []string            `json:"showdownOrder,omitempty"`
}
