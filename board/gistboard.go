package board

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/summitto/notepad/protocol"
)

// GistBoard binds Board to a single gist: every envelope is one file
// within that gist, named by the decimal string of a u128 taken from the
// first 16 bytes of a blake2b-256 digest of the envelope's canonical bytes (grounded on
// secretserv's practice, in this same retrieval pack, of naming encrypted
// chunks after a checksum of their content). Deriving the name from
// content rather than a counter means re-inserting byte-identical content
// (the duplicate-suppression case, §4.3) always lands on the same file
// instead of silently multiplying files.
type GistBoard struct {
	BaseURL string // e.g. "https://api.github.com"
	GistID  string
	Token   string
	HTTP    *http.Client
}

// NewGistBoard constructs a GistBoard bound to a single existing gist.
func NewGistBoard(baseURL, gistID, token string) *GistBoard {
	return &GistBoard{
		BaseURL: baseURL,
		GistID:  gistID,
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (b *GistBoard) authHeader(req *http.Request) {
	req.Header.Set("Authorization", "token "+b.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
}

// filenameFor derives the u128 filename for an envelope's canonical bytes.
func filenameFor(encoded []byte) MessageID {
	sum := blake2b.Sum256(encoded)
	id := new(big.Int).SetBytes(sum[:16])
	return MessageID(id.String())
}

type gistFile struct {
	Filename string `json:"filename,omitempty"`
	Content  string `json:"content"`
}

type gistResponse struct {
	Files map[string]gistFile `json:"files"`
}

// List fetches the gist and decodes each file's content as a Msg, skipping
// anything that fails to parse (§4.2).
func (b *GistBoard) List(ctx context.Context) ([]Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"/gists/"+b.GistID, nil)
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

	var gist gistResponse
	if err := json.NewDecoder(resp.Body).Decode(&gist); err != nil {
		return nil, &protocol.BoardError{Op: "list", Err: err}
	}

	envelopes := make([]Envelope, 0, len(gist.Files))
	for name, f := range gist.Files {
		msg, err := protocol.Decode([]byte(f.Content))
		if err != nil {
			continue
		}
		envelopes = append(envelopes, Envelope{ID: MessageID(name), Msg: msg})
	}
	return envelopes, nil
}

type gistPatchRequest struct {
	Files map[string]*gistFile `json:"files"`
}

// Insert writes msg's canonical encoding into a new file named after its
// content hash and returns that filename as the MessageID.
func (b *GistBoard) Insert(ctx context.Context, msg protocol.Msg) (MessageID, error) {
	encoded, err := protocol.Encode(msg)
	if err != nil {
		return "", err
	}
	id := filenameFor(encoded)

	patch := gistPatchRequest{Files: map[string]*gistFile{
		string(id): {Content: string(encoded)},
	}}
	body, err := json.Marshal(patch)
	if err != nil {
		return "", &protocol.BoardError{Op: "insert", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, b.BaseURL+"/gists/"+b.GistID, bytes.NewReader(body))
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
	return id, nil
}

// Remove deletes the file named id from the gist by PATCHing it to null,
// the GitHub Gist API's documented way to delete one file without
// affecting the rest of the gist.
func (b *GistBoard) Remove(ctx context.Context, id MessageID) error {
	patch := gistPatchRequest{Files: map[string]*gistFile{
		string(id): nil,
	}}
	body, err := json.Marshal(patch)
	if err != nil {
		return &protocol.BoardError{Op: "remove", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, b.BaseURL+"/gists/"+b.GistID, bytes.NewReader(body))
	if err != nil {
		return &protocol.BoardError{Op: "remove", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	b.authHeader(req)

	resp, err := b.HTTP.Do(req)
	if err != nil {
		return &protocol.BoardError{Op: "remove", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode/100 != 2 {
		return httpStatusError("remove", resp.StatusCode)
	}
	return nil
}
