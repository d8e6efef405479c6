package board

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/summitto/notepad/protocol"
)

// Memory is an in-process Board used by tests to exercise the client and
// server protocol engines without a real pastebin or gist backend. It
// honors the same list/insert/remove contract as PasteBoard and GistBoard,
// including silently skipping anything that fails to decode and treating
// removal of an unknown ID as success.
type Memory struct {
	mu       sync.Mutex
	messages map[MessageID]protocol.Msg
	nextID   *big.Int

	// FailNext, when > 0, makes the next N operations return a BoardError
	// without touching state, for exercising the "abort the cycle, retry
	// next tick" failure semantics of §4.4/§7.
	FailNext int
}

// NewMemory constructs an empty in-memory board.
func NewMemory() *Memory {
	return &Memory{
		messages: make(map[MessageID]protocol.Msg),
		nextID:   big.NewInt(0),
	}
}

func (m *Memory) maybeFail(op string) error {
	if m.FailNext > 0 {
		m.FailNext--
		return &protocol.BoardError{Op: op, Err: fmt.Errorf("injected failure")}
	}
	return nil
}

func (m *Memory) List(ctx context.Context) ([]Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("list"); err != nil {
		return nil, err
	}
	out := make([]Envelope, 0, len(m.messages))
	for id, msg := range m.messages {
		out = append(out, Envelope{ID: id, Msg: msg})
	}
	return out, nil
}

func (m *Memory) Insert(ctx context.Context, msg protocol.Msg) (MessageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("insert"); err != nil {
		return "", err
	}
	m.nextID = new(big.Int).Add(m.nextID, big.NewInt(1))
	id := MessageID(m.nextID.String())
	m.messages[id] = msg
	return id, nil
}

func (m *Memory) Remove(ctx context.Context, id MessageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("remove"); err != nil {
		return err
	}
	delete(m.messages, id)
	return nil
}

// Len reports how many envelopes are currently on the board, for test
// assertions (e.g. S3's "board contains exactly one copy").
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}
