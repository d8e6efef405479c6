package client

import (
	"crypto/rsa"
	"encoding/json"
	"math/big"
	"os"

	"github.com/summitto/notepad/protocol"
)

// persistedKey is the canonical JSON on-disk form of an RSA private key
// (§6: "A single file holds the serialized RSA private key (canonical
// JSON)"). It stores modulus, public exponent, private exponent and prime
// factors; decodeKey rebuilds the CRT values with rsa.PrivateKey.Precompute.
type persistedKey struct {
	N      *big.Int   `json:"n"`
	E      int        `json:"e"`
	D      *big.Int   `json:"d"`
	Primes []*big.Int `json:"primes"`
}

// LoadOrGenerateKey implements §6's local-file lifecycle: a present,
// parseable file is loaded; an absent or unparseable one causes a fresh key
// to be generated and the file overwritten.
func LoadOrGenerateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if key, parseErr := decodeKey(data); parseErr == nil {
			return key, nil
		}
	}

	key, err := protocol.GenerateRSAKeyPair()
	if err != nil {
		return nil, err
	}
	if err := SaveKey(path, key); err != nil {
		return nil, err
	}
	return key, nil
}

// SaveKey atomically overwrites path with key's canonical JSON encoding.
func SaveKey(path string, key *rsa.PrivateKey) error {
	pk := persistedKey{N: key.N, E: key.E, D: key.D, Primes: key.Primes}
	data, err := json.MarshalIndent(pk, "", "  ")
	if err != nil {
		return &protocol.LocalIOError{Op: "encode key", Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return &protocol.LocalIOError{Op: "write key", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &protocol.LocalIOError{Op: "rename key", Err: err}
	}
	return nil
}

func decodeKey(data []byte) (*rsa.PrivateKey, error) {
	var pk persistedKey
	if err := json.Unmarshal(data, &pk); err != nil {
		return nil, &protocol.LocalIOError{Op: "decode key", Err: err}
	}
	key := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: pk.N, E: pk.E},
		D:         pk.D,
		Primes:    pk.Primes,
	}
	key.Precompute()
	return key, nil
}
