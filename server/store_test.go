package server

import (
	"testing"

	"github.com/summitto/notepad/protocol"
)

func stringEncrypted(t *testing.T, s string, key protocol.AESKey) protocol.EncryptedData {
	t.Helper()
	enc, err := protocol.EncryptString(s, key)
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	return enc
}

// TestPasteStoreAtMostOneEntryPerName checks §8 invariant 4: no second
// entry exists for a byte-equal encrypted name; Put overwrites in place.
func TestPasteStoreAtMostOneEntryPerName(t *testing.T) {
	s := NewPasteStore()
	key := mustAESKey(t)

	name := stringEncrypted(t, "n", key)
	v1 := stringEncrypted(t, "v1", key)
	v2 := stringEncrypted(t, "v2", key)

	s.Put(name, v1)
	if !s.Has(name) {
		t.Fatalf("expected an entry after Put")
	}
	s.Put(name, v2)

	got, ok := s.Get(name)
	if !ok {
		t.Fatalf("expected Get to find the overwritten entry")
	}
	if !got.Equal(v2) {
		t.Fatalf("Put should overwrite the existing entry at name, not add a second one")
	}
}

func TestPasteStoreDeleteReportsWhetherSomethingWasRemoved(t *testing.T) {
	s := NewPasteStore()
	key := mustAESKey(t)
	name := stringEncrypted(t, "n", key)

	if s.Delete(name) {
		t.Fatalf("deleting an absent entry should report false")
	}

	content := stringEncrypted(t, "v", key)
	s.Put(name, content)
	if !s.Delete(name) {
		t.Fatalf("deleting a present entry should report true")
	}
	if s.Has(name) {
		t.Fatalf("entry should be gone after Delete")
	}
}
