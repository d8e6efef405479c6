package server

import (
	"context"
	"log"
	"time"

	"github.com/summitto/notepad/board"
	"github.com/summitto/notepad/protocol"
)

// Engine is the server protocol engine (§4.4): list, drain, repeat. It owns
// the session table and paste store and talks to the board exclusively
// through the board.Board interface, so either backend works unmodified.
type Engine struct {
	Board       board.Board
	Sessions    *SessionTable
	Store       *PasteStore
	KeyLifetime time.Duration
}

// NewEngine constructs an Engine with fresh session table and paste store.
func NewEngine(b board.Board) *Engine {
	return &Engine{
		Board:       b,
		Sessions:    NewSessionTable(),
		Store:       NewPasteStore(),
		KeyLifetime: 120 * time.Minute,
	}
}

// nowFunc is overridden in tests to exercise the rotation window without
// sleeping for real wall-clock minutes.
var nowFunc = time.Now

// RunForever drives the list/drain loop until ctx is cancelled, sleeping
// interval between cycles. Mirrors notary's bare accept-loop shape, adapted
// to polling instead of blocking on a socket.
func (e *Engine) RunForever(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := e.Cycle(ctx); err != nil {
			log.Println("server: cycle error, will retry next tick:", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Cycle runs one list+drain pass. Any board failure aborts the cycle; the
// caller resumes on the next call (§4.4's failure semantics).
func (e *Engine) Cycle(ctx context.Context) error {
	envs, err := e.Board.List(ctx)
	if err != nil {
		return err
	}
	if err := e.drain(ctx, envs); err != nil {
		return err
	}
	e.pruneKeys(envs)
	return nil
}

// pruneKeys implements §4.4's OPTIONAL session-key-trimming refinement:
// drop any non-current key whose session no longer has an outstanding
// board request that decrypts under it.
func (e *Engine) pruneKeys(envs []board.Envelope) {
	e.Sessions.TrimObsoleteKeys(func(key protocol.AESKey) bool {
		for _, env := range envs {
			if env.Msg.Kind != protocol.KindActionRequest {
				continue
			}
			if _, err := ciphertextOf(*env.Msg.ActionReq).Decrypt(key); err == nil {
				return true
			}
		}
		return false
	})
}

// drain implements drain_requests: walk envs from last to first (newest to
// oldest when the board lists oldest first; Board.List itself guarantees no
// order), handling each GreetRequest and EncryptedActionRequest once.
func (e *Engine) drain(ctx context.Context, envs []board.Envelope) error {
	now := nowFunc()
	for i := len(envs) - 1; i >= 0; i-- {
		env := envs[i]
		switch env.Msg.Kind {
		case protocol.KindGreetRequest:
			if err := e.handleGreet(ctx, envs, env.Msg.Greet.PubKey, now); err != nil {
				return err
			}
		case protocol.KindActionRequest:
			if err := e.handleAction(ctx, envs, env, now); err != nil {
				return err
			}
		}
	}
	return nil
}

// handleGreet implements §4.4's greet handling: idempotent per public key,
// never removes the GreetRequest (it is a durable identity record).
func (e *Engine) handleGreet(ctx context.Context, envs []board.Envelope, pub protocol.PubKeyPEM, now time.Time) error {
	for _, env := range envs {
		if env.Msg.Kind == protocol.KindGreetResponse && env.Msg.GreetResp.PubKey.Equal(pub) {
			return nil // already answered
		}
	}

	key, err := protocol.GenerateAESKey()
	if err != nil {
		return err
	}
	rsaPub, err := protocol.ParsePublicKeyPEM(pub)
	if err != nil {
		return err
	}
	wrapped, err := protocol.WrapAESKey(rsaPub, key)
	if err != nil {
		return err
	}
	if _, err := e.Board.Insert(ctx, protocol.NewGreetResponse(pub, wrapped)); err != nil {
		return err
	}
	e.Sessions.Create(pub, key, now)
	log.Println("server: greeted new session")
	return nil
}

// handleAction implements §4.4's action handling, including the key
// rotation window and per-variant dispatch.
func (e *Engine) handleAction(ctx context.Context, envs []board.Envelope, env board.Envelope, now time.Time) error {
	req := *env.Msg.ActionReq

	for _, other := range envs {
		if other.Msg.Kind == protocol.KindActionResponse && other.Msg.ActionResp.Request.Equal(req) {
			return nil // response already posted, client hasn't consumed it yet
		}
	}

	match, ok := FindByCiphertext(e.Sessions, req)
	if !ok {
		// No session recognizes this ciphertext; nothing to do until a
		// session that owns it appears (or it is orphaned forever, which
		// the protocol tolerates).
		return nil
	}

	if match.IsCurrentKey() && now.Sub(match.LastRotation()) >= e.KeyLifetime {
		newKey, err := protocol.GenerateAESKey()
		if err != nil {
			return err
		}
		e.Sessions.Rotate(match.entry, newKey, now)

		rsaPub, err := protocol.ParsePublicKeyPEM(match.PubKey())
		if err != nil {
			return err
		}
		wrapped, err := protocol.WrapAESKey(rsaPub, newKey)
		if err != nil {
			return err
		}
		resp := protocol.NewActionResponse(protocol.EncryptedActionResponse{
			Request: req,
			Payload: protocol.ResponsePayload{RotatedKey: wrapped},
		})
		if _, err := e.Board.Insert(ctx, resp); err != nil {
			return err
		}
		if err := e.Board.Remove(ctx, env.ID); err != nil {
			return err
		}
		log.Println("server: rotated session key, posted rotation response")
		return nil
	}

	key := match.MatchedKey()
	return e.dispatchAction(ctx, envs, env, req, key)
}

func (e *Engine) dispatchAction(ctx context.Context, envs []board.Envelope, env board.Envelope, req protocol.EncryptedActionRequest, key protocol.AESKey) error {
	switch req.Action {
	case protocol.ActionGet:
		content, ok := e.Store.Get(req.Name)
		if !ok {
			// §9 open question 2: silently post nothing, the client times
			// out. Preserved deliberately; changing this would alter the
			// client's Left(None)-is-impossible invariant (§4.3).
			return nil
		}
		paste := protocol.EncryptedPaste{Name: req.Name, Content: content}
		resp := protocol.NewActionResponse(protocol.EncryptedActionResponse{
			Request: req,
			Payload: protocol.ResponsePayload{HasPaste: true, Paste: paste},
		})
		_, err := e.Board.Insert(ctx, resp)
		return err // request envelope deliberately NOT removed (§4.4)

	case protocol.ActionNew:
		if e.Store.Has(req.Paste.Name) {
			// Already exists: §4.4 only specifies New's effect for the
			// does-not-already-contain case. Leave the request envelope
			// untouched rather than ACK a write that never happened.
			return nil
		}
		e.Store.Put(req.Paste.Name, req.Paste.Content)
		return e.ackAndRemove(ctx, env, req)

	case protocol.ActionMut:
		if e.Store.Delete(req.Paste.Name) {
			if err := e.cascadeDelete(ctx, envs, req.Paste.Name); err != nil {
				return err
			}
		}
		e.Store.Put(req.Paste.Name, req.Paste.Content)
		return e.ackAndRemove(ctx, env, req)

	case protocol.ActionRemove:
		if e.Store.Delete(req.Name) {
			if err := e.cascadeDelete(ctx, envs, req.Name); err != nil {
				return err
			}
		}
		return e.Board.Remove(ctx, env.ID)

	default:
		return &protocol.ProtocolViolation{Reason: "unknown action kind"}
	}
}

func (e *Engine) ackAndRemove(ctx context.Context, env board.Envelope, req protocol.EncryptedActionRequest) error {
	resp := protocol.NewActionResponse(protocol.EncryptedActionResponse{
		Request: req,
		Payload: protocol.ResponsePayload{HasPaste: false},
	})
	if _, err := e.Board.Insert(ctx, resp); err != nil {
		return err
	}
	return e.Board.Remove(ctx, env.ID)
}

// cascadeDelete implements §4.4's cascade rule: when a paste named N
// disappears, remove every board envelope (request or response) that
// references N, so stale Gets and reposted News cannot resurrect it.
func (e *Engine) cascadeDelete(ctx context.Context, envs []board.Envelope, name protocol.EncryptedData) error {
	for _, env := range envs {
		switch env.Msg.Kind {
		case protocol.KindActionRequest:
			if !referencesName(*env.Msg.ActionReq, name) {
				continue
			}
		case protocol.KindActionResponse:
			if !referencesName(env.Msg.ActionResp.Request, name) {
				continue
			}
		default:
			continue
		}
		if err := e.Board.Remove(ctx, env.ID); err != nil {
			return err
		}
	}
	return nil
}

func referencesName(req protocol.EncryptedActionRequest, name protocol.EncryptedData) bool {
	switch req.Action {
	case protocol.ActionGet, protocol.ActionRemove:
		return req.Name.Equal(name)
	default:
		return req.Paste.Name.Equal(name)
	}
}
