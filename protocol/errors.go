package protocol

import "fmt"

// BoardError wraps a transient failure talking to the board (§7). Callers
// on a polling loop retry on the next tick; callers on a user-action path
// must surface it.
type BoardError struct {
	Op  string
	Err error
}

func (e *BoardError) Error() string { return fmt.Sprintf("board: %s: %v", e.Op, e.Err) }
func (e *BoardError) Unwrap() error { return e.Err }

// CodecError means an envelope failed to parse as a Msg. On the list path
// this is not fatal — the envelope is silently skipped (§4.2).
type CodecError struct {
	Err error
}

func (e *CodecError) Error() string { return fmt.Sprintf("codec: %v", e.Err) }
func (e *CodecError) Unwrap() error { return e.Err }

// CryptoError means an RSA unwrap or AES decrypt failed. During server
// trial decryption this is expected per-key and silently skipped; during
// client response handling on a known-good session it indicates corruption
// and must be surfaced (§7).
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string { return fmt.Sprintf("crypto: %s: %v", e.Op, e.Err) }
func (e *CryptoError) Unwrap() error { return e.Err }

// ProtocolViolation means a response shape was inconsistent with its
// request — e.g. a Get answered with Left(None) (§7).
type ProtocolViolation struct {
	Reason string
}

func (e *ProtocolViolation) Error() string { return fmt.Sprintf("protocol violation: %s", e.Reason) }

// LocalIOError wraps a failure reading or writing the local RSA key file.
type LocalIOError struct {
	Op  string
	Err error
}

func (e *LocalIOError) Error() string { return fmt.Sprintf("local io: %s: %v", e.Op, e.Err) }
func (e *LocalIOError) Unwrap() error { return e.Err }
