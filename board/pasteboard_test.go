package board

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/summitto/notepad/protocol"
)

// fakePasteService is a minimal in-memory stand-in for a pastebin-style
// API, enough to exercise PasteBoard's request shapes.
type fakePasteService struct {
	mu      sync.Mutex
	pastes  map[string]string
	counter int
}

func newFakePasteService() *fakePasteService {
	return &fakePasteService{pastes: make(map[string]string)}
}

func (s *fakePasteService) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/pastes":
			var entries []pasteListEntry
			for k, v := range s.pastes {
				entries = append(entries, pasteListEntry{Key: k, Content: v})
			}
			json.NewEncoder(w).Encode(entries)

		case r.Method == http.MethodPost && r.URL.Path == "/pastes":
			var req pasteCreateRequest
			json.NewDecoder(r.Body).Decode(&req)
			s.counter++
			key := "p" + string(rune('0'+s.counter))
			s.pastes[key] = req.Content
			json.NewEncoder(w).Encode(pasteCreateResponse{Key: key})

		case r.Method == http.MethodDelete:
			key := r.URL.Path[len("/pastes/"):]
			delete(s.pastes, key)
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestPasteBoardInsertListRemove(t *testing.T) {
	svc := newFakePasteService()
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	b := NewPasteBoard(srv.URL, "tok")
	ctx := context.Background()

	priv, _ := protocol.GenerateRSAKeyPair()
	pub, _ := protocol.PublicKeyPEM(&priv.PublicKey)
	msg := protocol.NewGreetRequest(pub)

	id, err := b.Insert(ctx, msg)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	envs, err := b.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(envs) != 1 || envs[0].ID != id {
		t.Fatalf("List returned %+v, want exactly one envelope with ID %v", envs, id)
	}

	if err := b.Remove(ctx, id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	envs, err = b.List(ctx)
	if err != nil {
		t.Fatalf("List after remove: %v", err)
	}
	if len(envs) != 0 {
		t.Fatalf("List after remove = %+v, want empty", envs)
	}
}

func TestPasteBoardRemoveMissingIsNotAnError(t *testing.T) {
	svc := newFakePasteService()
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	b := NewPasteBoard(srv.URL, "tok")
	if err := b.Remove(context.Background(), "does-not-exist"); err != nil {
		t.Fatalf("Remove of a missing paste should succeed, got %v", err)
	}
}

func TestPasteBoardSkipsMalformedEnvelopes(t *testing.T) {
	svc := newFakePasteService()
	svc.pastes["garbage"] = "not a msg"
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	b := NewPasteBoard(srv.URL, "tok")
	envs, err := b.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(envs) != 0 {
		t.Fatalf("List should have skipped the malformed envelope, got %+v", envs)
	}
}
