package server

import "github.com/summitto/notepad/protocol"

// PasteStore is the §3 "Paste store": encrypted name to encrypted content,
// at most one entry per encrypted name.
type PasteStore struct {
	byName map[string]protocol.EncryptedData
}

// NewPasteStore constructs an empty store.
func NewPasteStore() *PasteStore {
	return &PasteStore{byName: make(map[string]protocol.EncryptedData)}
}

// Get returns the content stored under name, if any.
func (s *PasteStore) Get(name protocol.EncryptedData) (protocol.EncryptedData, bool) {
	content, ok := s.byName[name.Key()]
	return content, ok
}

// Has reports whether name already has an entry.
func (s *PasteStore) Has(name protocol.EncryptedData) bool {
	_, ok := s.byName[name.Key()]
	return ok
}

// Put inserts or overwrites the entry at name.
func (s *PasteStore) Put(name, content protocol.EncryptedData) {
	s.byName[name.Key()] = content
}

// Delete removes the entry at name, if present. Reports whether an entry
// was actually removed (used to decide whether a cascade delete is needed).
func (s *PasteStore) Delete(name protocol.EncryptedData) bool {
	if _, ok := s.byName[name.Key()]; !ok {
		return false
	}
	delete(s.byName, name.Key())
	return true
}
