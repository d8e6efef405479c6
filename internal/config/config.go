// Package config centralizes the compile-time constants of §6 of the
// protocol spec and the environment-derived board credentials that must
// never live in a source tree (§9's "static credentials" design note).
package config

import (
	"fmt"
	"os"
	"time"
)

// Protocol constants, §6.
const (
	// PendingRequestRetryPeriod is how often the client re-lists the board
	// while awaiting a session or a Get response.
	PendingRequestRetryPeriod = 3 * time.Second

	// PendingGetTimeout is how long the client waits for a Get response
	// before abandoning it silently.
	PendingGetTimeout = 8 * time.Second

	// SessionKeyLifetime is how long a session's current AES key remains
	// valid before the server rotates it on the next request that uses it.
	SessionKeyLifetime = 120 * time.Minute
)

// BoardBackend selects which concrete Board binding to construct.
type BoardBackend string

const (
	BackendPaste BoardBackend = "paste"
	BackendGist  BoardBackend = "gist"
)

// BoardCredentials holds everything needed to construct either board
// binding. Fields irrelevant to the selected Backend are left zero.
type BoardCredentials struct {
	Backend BoardBackend

	BaseURL string
	Token   string

	// GistID is only used when Backend == BackendGist.
	GistID string
}

// LoadBoardCredentials reads board credentials from the environment. The
// teacher never had an analogous external-service credential (notary.go's
// only secret-like value is the URLFetcher attestation document, uploaded
// at runtime rather than baked in); this follows the same
// externalize-everything discipline §9 requires of this spec explicitly.
func LoadBoardCredentials() (BoardCredentials, error) {
	backend := BoardBackend(os.Getenv("NOTEPAD_BOARD_BACKEND"))
	if backend == "" {
		backend = BackendPaste
	}

	token := os.Getenv("NOTEPAD_BOARD_TOKEN")
	if token == "" {
		return BoardCredentials{}, fmt.Errorf("NOTEPAD_BOARD_TOKEN is not set")
	}

	baseURL := os.Getenv("NOTEPAD_BOARD_URL")

	creds := BoardCredentials{Backend: backend, BaseURL: baseURL, Token: token}

	switch backend {
	case BackendPaste:
		if baseURL == "" {
			creds.BaseURL = "https://pastebin.example/api"
		}
	case BackendGist:
		if baseURL == "" {
			creds.BaseURL = "https://api.github.com"
		}
		creds.GistID = os.Getenv("NOTEPAD_GIST_ID")
		if creds.GistID == "" {
			return BoardCredentials{}, fmt.Errorf("NOTEPAD_GIST_ID is not set")
		}
	default:
		return BoardCredentials{}, fmt.Errorf("unknown board backend %q", backend)
	}

	return creds, nil
}

// RSAKeyPath is where the client persists its private key (§6's "local
// files" interface). It honors NOTEPAD_RSA_KEY_PATH for tests and
// alternate deployments, falling back to a fixed default.
func RSAKeyPath() string {
	if p := os.Getenv("NOTEPAD_RSA_KEY_PATH"); p != "" {
		return p
	}
	return "notepad_client_key.json"
}
