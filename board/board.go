// Package board abstracts the public, untrusted message-list service that
// is the protocol's sole transport (§4.2 of the protocol spec). Two
// concrete bindings exist — pasteboard (one paste per envelope) and
// gistboard (one gist, one file per envelope) — but neither the client nor
// server protocol engine depends on which one is in use; both satisfy the
// same Board interface.
package board

import (
	"context"
	"fmt"

	"github.com/summitto/notepad/protocol"
)

// MessageID identifies one envelope on the board. It is opaque outside
// this package: callers never parse it, only round-trip it from List to
// Remove. Concretely it is a paste key for pasteboard and a decimal u128
// filename for gistboard, but the core protocol never inspects which.
type MessageID string

// Envelope pairs a board-assigned ID with the Msg it decoded to.
type Envelope struct {
	ID  MessageID
	Msg protocol.Msg
}

// Board is the three-operation interface the protocol engines use to talk
// to the shared board (§4.2). Implementations must:
//   - treat any non-2xx HTTP response as a transient *protocol.BoardError;
//   - skip envelopes that fail to parse as a Msg in List, rather than
//     failing the whole call;
//   - perform no concurrent board operations on behalf of the same caller
//     (the protocol assumes serial interaction, §5).
type Board interface {
	// List returns a snapshot of every envelope currently on the board
	// that parses as a Msg. Envelopes that don't parse are silently
	// skipped (§4.2).
	List(ctx context.Context) ([]Envelope, error)

	// Insert uploads msg and returns the ID the board assigned it.
	Insert(ctx context.Context, msg protocol.Msg) (MessageID, error)

	// Remove deletes the envelope with the given ID. Removing an ID that
	// no longer exists is not an error (the protocol's idempotence
	// requirement, §7, means a racing delete from a concurrent cycle must
	// not turn into a hard failure).
	Remove(ctx context.Context, id MessageID) error
}

// httpStatusError builds the *protocol.BoardError returned for a non-2xx
// status, so board implementations share one message shape.
func httpStatusError(op string, status int) error {
	return &protocol.BoardError{Op: op, Err: fmt.Errorf("unexpected HTTP status %d", status)}
}
