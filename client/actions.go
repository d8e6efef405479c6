package client

import (
	"context"
	"fmt"

	"github.com/summitto/notepad/protocol"
)

// ErrNoSession is returned by action methods when called before the
// handshake has completed (§4.3 state 1, "Awaiting session").
var ErrNoSession = fmt.Errorf("client: no session established yet")

// ErrGetInFlight is returned when a Get is issued while one is already
// pending — §3 allows at most one pending get at a time.
var ErrGetInFlight = fmt.Errorf("client: a get is already pending")

// New emits an EncryptedActionRequest::New for the given plaintext name and
// content, suppressing the insert if a byte-equal request is already on the
// board (§4.3's duplicate-suppression step).
func (c *Client) New(ctx context.Context, name, content string) error {
	paste, err := protocol.EncryptPaste(name, content, c.session)
	if err != nil {
		return err
	}
	req := protocol.EncryptedActionRequest{Action: protocol.ActionNew, Paste: paste}
	return c.emitAction(ctx, req)
}

// Mut emits an EncryptedActionRequest::Mut, same suppression rule as New.
func (c *Client) Mut(ctx context.Context, name, content string) error {
	paste, err := protocol.EncryptPaste(name, content, c.session)
	if err != nil {
		return err
	}
	req := protocol.EncryptedActionRequest{Action: protocol.ActionMut, Paste: paste}
	return c.emitAction(ctx, req)
}

// Remove emits an EncryptedActionRequest::Remove for the given plaintext
// name, same suppression rule as New.
func (c *Client) Remove(ctx context.Context, name string) error {
	encName, err := protocol.EncryptString(name, c.session)
	if err != nil {
		return err
	}
	req := protocol.EncryptedActionRequest{Action: protocol.ActionRemove, Name: encName}
	return c.emitAction(ctx, req)
}

// emitAction implements §4.3's "Action emission" steps 1-3: list, suppress
// if a byte-equal request already exists, otherwise insert fire-and-forget.
func (c *Client) emitAction(ctx context.Context, req protocol.EncryptedActionRequest) error {
	if !c.HasSession() {
		return ErrNoSession
	}

	envs, err := c.Board.List(ctx)
	if err != nil {
		return err
	}
	for _, env := range envs {
		if env.Msg.Kind == protocol.KindActionRequest && env.Msg.ActionReq.Equal(req) {
			return nil // already on the board, suppress the duplicate insert
		}
	}

	_, err = c.Board.Insert(ctx, protocol.NewActionRequest(req))
	return err
}

// Get emits an EncryptedActionRequest::Get for the given plaintext name and
// enters the Pending-get state (§4.3's "Get emission"). It returns
// ErrGetInFlight if a get is already outstanding.
func (c *Client) Get(ctx context.Context, name string) error {
	if !c.HasSession() {
		return ErrNoSession
	}
	if c.IsPendingGet() {
		return ErrGetInFlight
	}

	encName, err := protocol.EncryptString(name, c.session)
	if err != nil {
		return err
	}
	req := protocol.EncryptedActionRequest{Action: protocol.ActionGet, Name: encName}

	if _, err := c.Board.Insert(ctx, protocol.NewActionRequest(req)); err != nil {
		return err
	}
	c.pending = &pendingGet{request: req}
	c.pending.startedAt = nowFunc()
	c.state = statePendingGet
	return nil
}
