package protocol

import (
	"encoding/json"
	"fmt"
)

// Inbound is the decoded result of a client frame: exactly one of Chat,
// Start or Action is meaningful, selected by Kind.
type Inbound struct {
	Kind  string
	Chat  ChatIn
	Start StartIn
	Action ActionIn
}

// Outbound is implemented by every frame the session manager may send to a
// client. It exists only to give Encode a narrower signature than
// any — satisfied by StateFrame, ErrorFrame and ChatOut.
type Outbound interface {
	outboundFrame()
}

func (StateFrame) outboundFrame() {}
func (ErrorFrame) outboundFrame() {}
func (ChatOut) outboundFrame()    {}

type typeSniff struct {
	Type string `json:"type"`
}

// Decode sniffs a client frame's "type" field and unmarshals it into the
// matching typed frame. It returns an error for unknown frame types or for a
// frame that fails to unmarshal as its declared type, mirroring the
// single decode entrypoint of the teacher's internal/protocol package
// (Decode/Encode over a discriminated wire frame) adapted here to a JSON
// envelope instead of msgpack.
func Decode(data []byte) (Inbound, error) {
	var head typeSniff
	if err := json.Unmarshal(data, &head); err != nil {
		return Inbound{}, fmt.Errorf("protocol: decode frame header: %w", err)
	}
	switch head.Type {
	case TypeChat:
		var f ChatIn
		if err := json.Unmarshal(data, &f); err != nil {
			return Inbound{}, fmt.Errorf("protocol: decode chat frame: %w", err)
		}
		return Inbound{Kind: TypeChat, Chat: f}, nil
	case TypeStart:
		var f StartIn
		if err := json.Unmarshal(data, &f); err != nil {
			return Inbound{}, fmt.Errorf("protocol: decode start frame: %w", err)
		}
		return Inbound{Kind: TypeStart, Start: f}, nil
	case TypeAction:
		var f ActionIn
		if err := json.Unmarshal(data, &f); err != nil {
			return Inbound{}, fmt.Errorf("protocol: decode action frame: %w", err)
		}
		return Inbound{Kind: TypeAction, Action: f}, nil
	default:
		return Inbound{}, fmt.Errorf("protocol: unknown frame type %q", head.Type)
	}
}

// Encode marshals an outbound frame to its wire JSON.
func Encode(f Outbound) ([]byte, error) {
	return json.Marshal(f)
}
