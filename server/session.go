// Package server implements the server protocol engine (§4.4): the session
// table, key-rotation window, paste store, and the drain loop that
// processes board messages once each. Modeled on session_manager's
// map-of-sessions-with-timestamps pattern, generalized from one entry per
// TCP peer to one entry per client RSA public key.
package server

import (
	"time"

	"github.com/summitto/notepad/protocol"
)

// sessionEntry is the server's view of one client, §3's "Session table"
// row: an ordered list of AES keys (oldest first, current key last) bound
// to one RSA public key.
type sessionEntry struct {
	pub          protocol.PubKeyPEM
	keys         []protocol.AESKey
	lastRotation time.Time
}

// currentKey returns the session's most recently issued key.
func (s *sessionEntry) currentKey() protocol.AESKey {
	return s.keys[len(s.keys)-1]
}

// SessionTable holds one sessionEntry per greeted public key.
type SessionTable struct {
	byPub map[string]*sessionEntry
}

// NewSessionTable constructs an empty table.
func NewSessionTable() *SessionTable {
	return &SessionTable{byPub: make(map[string]*sessionEntry)}
}

// Has reports whether a session already exists for pub. Greet handling does
// not consult it; its idempotence check looks for a GreetResponse on the
// board instead.
func (t *SessionTable) Has(pub protocol.PubKeyPEM) bool {
	_, ok := t.byPub[pub.Key()]
	return ok
}

// Create establishes a new session for pub with a single initial key,
// recording now as the creation time of that key (§3 invariant: last_rotation
// equals the creation time of keys.last()).
func (t *SessionTable) Create(pub protocol.PubKeyPEM, key protocol.AESKey, now time.Time) {
	t.byPub[pub.Key()] = &sessionEntry{
		pub:          pub,
		keys:         []protocol.AESKey{key},
		lastRotation: now,
	}
}

// trialMatch is the result of FindByCiphertext: which session and which key
// index within it decrypted the ciphertext.
type trialMatch struct {
	entry    *sessionEntry
	keyIndex int
}

// FindByCiphertext implements §4.4's trial decryption: iterate sessions,
// for each iterate its keys oldest to newest, and return the first key that
// successfully decrypts req. Returns ok=false if no session's key works.
func FindByCiphertext(t *SessionTable, req protocol.EncryptedActionRequest) (trialMatch, bool) {
	target := ciphertextOf(req)
	for _, entry := range t.byPub {
		for i, key := range entry.keys {
			if _, err := target.Decrypt(key); err == nil {
				return trialMatch{entry: entry, keyIndex: i}, true
			}
		}
	}
	return trialMatch{}, false
}

// ciphertextOf extracts the single EncryptedData a request's decryption is
// trialed against: Name for Get/Remove, Paste.Name for New/Mut. Any of
// these decrypting under a session's key is sufficient to identify it,
// since both fields of a request are always encrypted under the same key.
func ciphertextOf(req protocol.EncryptedActionRequest) protocol.EncryptedData {
	switch req.Action {
	case protocol.ActionGet, protocol.ActionRemove:
		return req.Name
	default:
		return req.Paste.Name
	}
}

// Rotate appends a fresh key to entry's key list and updates last_rotation,
// per §4.4's rotation-window handling.
func (t *SessionTable) Rotate(entry *sessionEntry, newKey protocol.AESKey, now time.Time) {
	entry.keys = append(entry.keys, newKey)
	entry.lastRotation = now
}

// PubKey exposes the public key a matched session belongs to, for building
// the GreetResponse/rotation response.
func (m trialMatch) PubKey() protocol.PubKeyPEM { return m.entry.pub }

// IsCurrentKey reports whether the matched key index is the session's last
// (current) key.
func (m trialMatch) IsCurrentKey() bool { return m.keyIndex == len(m.entry.keys)-1 }

// LastRotation is the matched session's last_rotation timestamp.
func (m trialMatch) LastRotation() time.Time { return m.entry.lastRotation }

// CurrentKey is the matched session's current (last) key, which differs
// from MatchedKey when the request used an older key.
func (m trialMatch) CurrentKey() protocol.AESKey { return m.entry.currentKey() }

// MatchedKey is the key at the matched index, the one that actually
// decrypted the request (it may be older than current during a rotation
// window).
func (m trialMatch) MatchedKey() protocol.AESKey { return m.entry.keys[m.keyIndex] }

// TrimObsoleteKeys implements the optional refinement of §4.4's "Session
// key trimming": drop every key older than current that no longer decrypts
// any outstanding request still on the board.
func (t *SessionTable) TrimObsoleteKeys(stillNeeded func(protocol.AESKey) bool) {
	for _, entry := range t.byPub {
		if len(entry.keys) <= 1 {
			continue
		}
		current := entry.currentKey()
		var survivors []protocol.AESKey
		for _, k := range entry.keys[:len(entry.keys)-1] {
			if stillNeeded(k) {
				survivors = append(survivors, k)
			}
		}
		survivors = append(survivors, current)
		entry.keys = survivors
	}
}
