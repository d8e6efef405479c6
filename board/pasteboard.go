package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/summitto/notepad/protocol"
)

// PasteBoard binds Board to a pastebin-style service: every envelope is its
// own paste, identified by the paste key the service assigns on creation.
// The wire content of each paste is the canonical JSON encoding of a Msg
// (§4.1); PasteBoard itself has no opinion on what's inside.
type PasteBoard struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewPasteBoard constructs a PasteBoard with a sane default HTTP client
// timeout, matching the teacher's practice of bounding server write/read
// timeouts explicitly (notary.go's http.Server{WriteTimeout, ReadTimeout}).
func NewPasteBoard(baseURL, token string) *PasteBoard {
	return &PasteBoard{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type pasteListEntry struct {
	Key     string `json:"key"`
	Content string `json:"content"`
}

func (b *PasteBoard) authHeader(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+b.Token)
}

// List fetches every paste key/content pair and decodes each as a Msg,
// skipping anything that doesn't parse (§4.2).
func (b *PasteBoard) List(ctx context.Context) ([]Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"/pastes", nil)
	if err != nil {
		return nil, &protocol.BoardError{Op: "list", Err: err}
	}
	b.authHeader(req)

	resp, err := b.HTTP.Do(req)
	if err != nil {
		return nil, &protocol.BoardError{Op: "list", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, httpStatusError("list", resp.StatusCode)
	}

	var entries []pasteListEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, &protocol.BoardError{Op: "list", Err: err}
	}

	envelopes := make([]Envelope, 0, len(entries))
	for _, e := range entries {
		msg, err := protocol.Decode([]byte(e.Content))
		if err != nil {
			// malformed or foreign paste; §4.2 says skip, not fail
			continue
		}
		envelopes = append(envelopes, Envelope{ID: MessageID(e.Key), Msg: msg})
	}
	return envelopes, nil
}

type pasteCreateRequest struct {
	Content string `json:"content"`
}

type pasteCreateResponse struct {
	Key string `json:"key"`
}

// Insert uploads the canonical encoding of msg as a new paste.
func (b *PasteBoard) Insert(ctx context.Context, msg protocol.Msg) (MessageID, error) {
	encoded, err := protocol.Encode(msg)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(pasteCreateRequest{Content: string(encoded)})
	if err != nil {
		return "", &protocol.BoardError{Op: "insert", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/pastes", bytes.NewReader(body))
	if err != nil {
		return "", &protocol.BoardError{Op: "insert", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	b.authHeader(req)

	resp, err := b.HTTP.Do(req)
	if err != nil {
		return "", &protocol.BoardError{Op: "insert", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", httpStatusError("insert", resp.StatusCode)
	}

	var created pasteCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", &protocol.BoardError{Op: "insert", Err: err}
	}
	return MessageID(created.Key), nil
}

// Remove deletes the paste with the given key. A 404 is treated the same
// as success: the envelope is already gone, which is the outcome the
// caller wanted (§7's idempotence requirement).
func (b *PasteBoard) Remove(ctx context.Context, id MessageID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/pastes/%s", b.BaseURL, id), nil)
	if err != nil {
		return &protocol.BoardError{Op: "remove", Err: err}
	}
	b.authHeader(req)

	resp, err := b.HTTP.Do(req)
	if err != nil {
		return &protocol.BoardError{Op: "remove", Err: err}
	}
	defer io.Copy(io.Discard, resp.Body)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode/100 != 2 {
		return httpStatusError("remove", resp.StatusCode)
	}
	return nil
}
