// Package client implements the client protocol engine (§4.3): handshake
// against a session, encrypted action emission with duplicate suppression,
// and a pending-get state machine with timeout. Every public method runs a
// single synchronous pass over the board and returns; the caller supplies
// its own repaint/poll loop, per §5's "driven by a UI repaint cycle" model.
package client

import (
	"context"
	"crypto/rsa"
	"log"
	"time"

	"github.com/summitto/notepad/board"
	"github.com/summitto/notepad/protocol"
)

// nowFunc is overridden in tests to control the pending-get timeout clock
// without sleeping.
var nowFunc = time.Now

// state is the client's observable state, §4.3.
type state int

const (
	stateAwaitingSession state = iota
	stateIdle
	statePendingGet
)

// pendingGet is the §3 "pending-get state": at most one at a time.
type pendingGet struct {
	request   protocol.EncryptedActionRequest
	startedAt time.Time
}

// Client drives the handshake and encrypted action protocol against a
// Board. It is not safe for concurrent use from multiple goroutines — the
// protocol assumes a single peer issuing board operations serially (§5).
type Client struct {
	Board board.Board

	PrivateKey *rsa.PrivateKey
	PublicKey  protocol.PubKeyPEM

	RetryPeriod        time.Duration
	PendingGetTimeout  time.Duration

	state     state
	session   protocol.AESKey
	pending   *pendingGet
	lastGreet time.Time

	// lastResult holds the most recent Get hit until the caller consumes it
	// with ConsumeResult. Tick populates this on a match rather than
	// returning it directly, since Tick's only job is to advance state for
	// one synchronous pass (§5).
	lastResult *protocol.EncryptedPaste
}

// New constructs a Client bound to an RSA key pair already loaded or
// generated by the caller (persistence is the caller's concern, per §6's
// "local files" interface — see internal/config and cmd/notepad-client).
func New(b board.Board, priv *rsa.PrivateKey, pub protocol.PubKeyPEM) *Client {
	return &Client{
		Board:             b,
		PrivateKey:        priv,
		PublicKey:         pub,
		RetryPeriod:       3 * time.Second,
		PendingGetTimeout: 8 * time.Second,
		state:             stateAwaitingSession,
	}
}

// HasSession reports whether the client currently holds an AES session key.
func (c *Client) HasSession() bool { return c.state != stateAwaitingSession }

// IsPendingGet reports whether a Get is currently outstanding.
func (c *Client) IsPendingGet() bool { return c.state == statePendingGet }

// Regenerate replaces the client's RSA identity, per §3/§8.6 and scenario
// S6: the old session becomes unreachable by design, and a fresh greet must
// be posted under the new public key.
func (c *Client) Regenerate(priv *rsa.PrivateKey, pub protocol.PubKeyPEM) {
	c.PrivateKey = priv
	c.PublicKey = pub
	c.state = stateAwaitingSession
	c.pending = nil
	c.lastGreet = time.Time{}
}

// Tick runs one synchronous pass: if awaiting a session, it drives the
// handshake; if a get is pending, it checks for a response or timeout.
// Callers invoke this on their own UI cycle (§5).
func (c *Client) Tick(ctx context.Context) error {
	switch c.state {
	case stateAwaitingSession:
		return c.tickHandshake(ctx)
	case statePendingGet:
		return c.tickPendingGet(ctx)
	default:
		return nil
	}
}

// tickHandshake implements §4.3's handshake state machine.
func (c *Client) tickHandshake(ctx context.Context) error {
	envs, err := c.Board.List(ctx)
	if err != nil {
		return err
	}

	for _, env := range envs {
		if env.Msg.Kind != protocol.KindGreetResponse {
			continue
		}
		resp := env.Msg.GreetResp
		if !resp.PubKey.Equal(c.PublicKey) {
			continue
		}
		key, err := protocol.UnwrapAESKey(c.PrivateKey, resp.WrappedKey)
		if err != nil {
			return err
		}
		c.session = key
		c.state = stateIdle
		log.Println("client: handshake complete, session established")
		return nil
	}

	// No response yet. Insert the greet once, then just keep re-listing
	// (§4.3: "it does NOT re-insert the greet on every tick").
	if c.lastGreet.IsZero() {
		msg := protocol.NewGreetRequest(c.PublicKey)
		if _, err := c.Board.Insert(ctx, msg); err != nil {
			return err
		}
		c.lastGreet = nowFunc()
		log.Println("client: posted greet request, awaiting session")
	}
	return nil
}

// tickPendingGet implements the retry/timeout half of §4.3's Get emission.
func (c *Client) tickPendingGet(ctx context.Context) error {
	if c.pending == nil {
		c.state = stateIdle
		return nil
	}

	if nowFunc().Sub(c.pending.startedAt) >= c.PendingGetTimeout {
		log.Println("client: pending get timed out, abandoning silently")
		c.pending = nil
		c.state = stateIdle
		return nil
	}

	envs, err := c.Board.List(ctx)
	if err != nil {
		return err
	}

	for _, env := range envs {
		if env.Msg.Kind != protocol.KindActionResponse {
			continue
		}
		resp := env.Msg.ActionResp
		if !resp.Request.Equal(c.pending.request) {
			continue
		}
		return c.handleGetResponse(ctx, env, *resp)
	}
	return nil
}

// handleGetResponse dispatches on the §4.1 Left/Right payload sum.
func (c *Client) handleGetResponse(ctx context.Context, env board.Envelope, resp protocol.EncryptedActionResponse) error {
	if resp.Payload.IsRotation() {
		newKey, err := protocol.UnwrapAESKey(c.PrivateKey, resp.Payload.RotatedKey)
		if err != nil {
			return err
		}
		c.session = newKey
		if err := c.Board.Remove(ctx, env.ID); err != nil {
			return err
		}
		log.Println("client: rotated to new session key")
		// The request that triggered rotation was not actually answered;
		// the caller must reissue it under the new key.
		c.pending = nil
		c.state = stateIdle
		return nil
	}

	if !resp.Payload.HasPaste {
		return &protocol.ProtocolViolation{Reason: "Get answered with Left(None)"}
	}

	paste := resp.Payload.Paste
	c.lastResult = &paste
	c.pending = nil
	c.state = stateIdle
	return nil
}

// ConsumeResult returns and clears the most recently received Get payload,
// decrypted under the current session key. ok is false if no result is
// waiting.
func (c *Client) ConsumeResult() (name, content string, ok bool, err error) {
	if c.lastResult == nil {
		return "", "", false, nil
	}
	paste := *c.lastResult
	c.lastResult = nil
	name, content, err = paste.Decrypt(c.session)
	if err != nil {
		return "", "", false, err
	}
	return name, content, true, nil
}
