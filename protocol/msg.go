// Package protocol implements the wire types, canonical codec and crypto
// primitives shared by the notepad client and server: the Msg tagged union,
// RSA/AES hybrid wrap/unwrap, and the deterministic AES-ECB framing that the
// server uses to correlate requests and responses by ciphertext equality.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the four Msg variants. The board stores every message
// as an opaque blob; Kind is how a peer figures out what it is looking at
// after parsing the envelope.
type Kind string

const (
	KindGreetRequest   Kind = "greet_request"
	KindGreetResponse  Kind = "greet_response"
	KindActionRequest  Kind = "action_request"
	KindActionResponse Kind = "action_response"
)

// ActionKind discriminates the four EncryptedActionRequest variants.
type ActionKind string

const (
	ActionGet    ActionKind = "get"
	ActionNew    ActionKind = "new"
	ActionMut    ActionKind = "mut"
	ActionRemove ActionKind = "remove"
)

// GreetRequest announces a client's RSA public key to the board.
type GreetRequest struct {
	PubKey PubKeyPEM `json:"pub_key"`
}

// GreetResponse carries the AES session key wrapped under the client's
// public key. PubKey identifies which greet this answers.
type GreetResponse struct {
	PubKey     PubKeyPEM `json:"pub_key"`
	WrappedKey []byte    `json:"wrapped_key"`
}

// EncryptedActionRequest is one of Get/New/Mut/Remove, always encrypted
// under a session's current (or recent) AES key. Exactly one of Name or
// Paste is populated, depending on Action.
type EncryptedActionRequest struct {
	Action ActionKind    `json:"action"`
	Name   EncryptedData `json:"name,omitempty"`
	Paste  EncryptedPaste `json:"paste,omitempty"`
}

// Equal reports whether two requests are byte-identical once canonically
// encoded. This is the only correlation mechanism peers have: the board
// gives no request IDs, so deduplication and response-matching both reduce
// to this comparison (§4.1, §4.3, §4.4 of the protocol spec).
func (r EncryptedActionRequest) Equal(other EncryptedActionRequest) bool {
	a, errA := canonicalBytes(r)
	b, errB := canonicalBytes(other)
	if errA != nil || errB != nil {
		return false
	}
	return string(a) == string(b)
}

// ResponsePayload is the Left/Right sum from §4.1: Left carries an optional
// paste (Get hits, or None as an ACK); Right carries a rotation handshake.
type ResponsePayload struct {
	// HasPaste distinguishes Left(Some(...)) from Left(None). Rotation is
	// distinguished by RotatedKey being non-nil.
	HasPaste bool           `json:"has_paste,omitempty"`
	Paste    EncryptedPaste `json:"paste,omitempty"`

	RotatedKey []byte `json:"rotated_key,omitempty"`
}

// IsRotation reports whether this payload is the Right variant.
func (p ResponsePayload) IsRotation() bool { return len(p.RotatedKey) > 0 }

// EncryptedActionResponse answers a previously-seen EncryptedActionRequest.
type EncryptedActionResponse struct {
	Request EncryptedActionRequest `json:"request"`
	Payload ResponsePayload        `json:"payload"`
}

// Msg is the canonical, four-variant tagged union that is the sole unit of
// exchange over the board. Every field beyond the one named by Kind is the
// zero value, so two independently-constructed Msgs of the same logical
// content always encode identically (required by §4.1's "stable
// serialization" invariant).
type Msg struct {
	Kind Kind `json:"kind"`

	Greet       *GreetRequest            `json:"greet,omitempty"`
	GreetResp   *GreetResponse           `json:"greet_response,omitempty"`
	ActionReq   *EncryptedActionRequest  `json:"action_request,omitempty"`
	ActionResp  *EncryptedActionResponse `json:"action_response,omitempty"`
}

// NewGreetRequest builds the GreetRequest variant.
func NewGreetRequest(pub PubKeyPEM) Msg {
	return Msg{Kind: KindGreetRequest, Greet: &GreetRequest{PubKey: pub}}
}

// NewGreetResponse builds the GreetResponse variant.
func NewGreetResponse(pub PubKeyPEM, wrappedKey []byte) Msg {
	return Msg{Kind: KindGreetResponse, GreetResp: &GreetResponse{PubKey: pub, WrappedKey: wrappedKey}}
}

// NewActionRequest builds the EncryptedActionRequest variant.
func NewActionRequest(req EncryptedActionRequest) Msg {
	return Msg{Kind: KindActionRequest, ActionReq: &req}
}

// NewActionResponse builds the EncryptedActionResponse variant.
func NewActionResponse(resp EncryptedActionResponse) Msg {
	return Msg{Kind: KindActionResponse, ActionResp: &resp}
}

// Encode serializes m to its canonical wire form. Re-encoding the result of
// Decode must reproduce these exact bytes (round-trip law, §8).
func Encode(m Msg) ([]byte, error) {
	return canonicalBytes(m)
}

// Decode parses the canonical wire form back into a Msg. Malformed input
// returns a CodecError; callers on the board-polling path are expected to
// skip such envelopes rather than fail the whole list() (§4.2).
func Decode(data []byte) (Msg, error) {
	var m Msg
	if err := json.Unmarshal(data, &m); err != nil {
		return Msg{}, &CodecError{Err: err}
	}
	switch m.Kind {
	case KindGreetRequest:
		if m.Greet == nil {
			return Msg{}, &CodecError{Err: fmt.Errorf("greet_request: missing body")}
		}
	case KindGreetResponse:
		if m.GreetResp == nil {
			return Msg{}, &CodecError{Err: fmt.Errorf("greet_response: missing body")}
		}
	case KindActionRequest:
		if m.ActionReq == nil {
			return Msg{}, &CodecError{Err: fmt.Errorf("action_request: missing body")}
		}
	case KindActionResponse:
		if m.ActionResp == nil {
			return Msg{}, &CodecError{Err: fmt.Errorf("action_response: missing body")}
		}
	default:
		return Msg{}, &CodecError{Err: fmt.Errorf("unknown msg kind %q", m.Kind)}
	}
	return m, nil
}

// canonicalBytes is the single chokepoint for deterministic encoding.
// encoding/json already serializes a fixed Go value deterministically
// (struct fields in declaration order, map keys sorted), so the only rule
// callers must respect is: never put a non-canonical value (e.g. a map with
// interface{} values, or a float) into one of these structs.
func canonicalBytes(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, &CodecError{Err: err}
	}
	return b, nil
}
