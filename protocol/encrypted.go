package protocol

import (
	"bytes"
	"crypto/aes"
	"fmt"
	"unicode/utf8"
)

const blockSize = 16

// EncryptedData is AES-256-ECB ciphertext over 16-byte blocks of a
// zero-suffix-framed plaintext (§4.1). It is
// the unit the server correlates requests and responses by: two
// encryptions of the same (plaintext, key) must produce byte-identical
// EncryptedData, which is why this type carries no nonce or IV.
//
// This is the successor to the teacher's one-way AESECBencrypt helper
// (utils.go): that helper never needed a paired decrypt, because circuit
// wire labels are never recovered. Paste names and content must be
// recoverable, so EncryptedData adds Decrypt and the zero-suffix-length
// bookkeeping needed to undo the padding exactly.
type EncryptedData struct {
	Content       []byte `json:"content"`
	ZeroSuffixLen int    `json:"zero_suffix_len"`
}

// Equal reports byte-for-byte equality, the only comparison the protocol
// ever performs on ciphertext (§3, §8 invariant 2).
func (e EncryptedData) Equal(o EncryptedData) bool {
	return e.ZeroSuffixLen == o.ZeroSuffixLen && bytes.Equal(e.Content, o.Content)
}

// Key returns a value usable as a Go map key for e, e.g. the server's
// paste store (§3) which is keyed by encrypted name.
func (e EncryptedData) Key() string {
	return fmt.Sprintf("%02d:%s", e.ZeroSuffixLen, string(e.Content))
}

// splitPadBlocks pads plaintext to a multiple of blockSize with trailing
// zeros and returns how many zero bytes were appended. A whole multiple of
// blockSize needs no padding and reports 0, matching Decrypt's convention
// of keeping the entire last block in that case.
func splitPadBlocks(plaintext []byte) (blocks []byte, zeroSuffixLen int) {
	remainder := len(plaintext) % blockSize
	if remainder == 0 {
		return plaintext, 0
	}
	zeroSuffixLen = blockSize - remainder
	padded := make([]byte, len(plaintext)+zeroSuffixLen)
	copy(padded, plaintext)
	return padded, zeroSuffixLen
}

// Encrypt implements the AES-ECB framing of §4.1: split into 16-byte
// blocks (zero-padding the last one), encrypt every block under key, and
// record how many zero bytes were appended so Decrypt can strip them.
func Encrypt(plaintext []byte, key AESKey) (EncryptedData, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return EncryptedData{}, &CryptoError{Op: "aes.NewCipher", Err: err}
	}
	padded, zeroSuffixLen := splitPadBlocks(plaintext)
	out := make([]byte, len(padded))
	for off := 0; off < len(padded); off += blockSize {
		block.Encrypt(out[off:off+blockSize], padded[off:off+blockSize])
	}
	return EncryptedData{Content: out, ZeroSuffixLen: zeroSuffixLen}, nil
}

// Decrypt reverses Encrypt: AES-ECB decrypt every block, concatenate all
// but the last in full, then append the first 16-ZeroSuffixLen bytes of
// the final block (§4.1).
//
// Plain AES-ECB has no padding scheme or MAC, so decrypting under the
// wrong key never fails on its own terms — every key produces some
// 16-byte block. Paste names and content are always UTF-8 text (see
// EncryptString), so Decrypt additionally rejects a result that isn't
// valid UTF-8. This is what lets the server's trial decryption (§4.4)
// tell "wrong session" apart from "right session". The check is only
// probabilistic and weakens with length: a long value decrypted under a
// wrong key is very unlikely to be valid UTF-8, but a one-byte value
// passes whenever the byte is below 0x80, about half the time.
func (e EncryptedData) Decrypt(key AESKey) ([]byte, error) {
	if e.ZeroSuffixLen < 0 || e.ZeroSuffixLen >= blockSize {
		return nil, &CryptoError{Op: "EncryptedData.Decrypt", Err: fmt.Errorf("zero suffix length %d out of range", e.ZeroSuffixLen)}
	}
	if len(e.Content)%blockSize != 0 {
		return nil, &CryptoError{Op: "EncryptedData.Decrypt", Err: fmt.Errorf("ciphertext length %d not a multiple of %d", len(e.Content), blockSize)}
	}
	if len(e.Content) == 0 {
		return []byte{}, nil
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, &CryptoError{Op: "aes.NewCipher", Err: err}
	}
	plain := make([]byte, len(e.Content))
	for off := 0; off < len(e.Content); off += blockSize {
		block.Decrypt(plain[off:off+blockSize], e.Content[off:off+blockSize])
	}
	keep := blockSize - e.ZeroSuffixLen
	lastBlockOff := len(plain) - blockSize
	result := make([]byte, 0, lastBlockOff+keep)
	result = append(result, plain[:lastBlockOff]...)
	result = append(result, plain[lastBlockOff:lastBlockOff+keep]...)
	if !utf8.Valid(result) {
		return nil, &CryptoError{Op: "EncryptedData.Decrypt", Err: fmt.Errorf("decrypted value is not valid UTF-8 (wrong key)")}
	}
	return result, nil
}

// EncryptString is a convenience wrapper for the common case of encrypting
// UTF-8 text (paste names and content are always text).
func EncryptString(s string, key AESKey) (EncryptedData, error) {
	return Encrypt([]byte(s), key)
}

// DecryptString decrypts e and interprets the result as UTF-8 text.
func (e EncryptedData) DecryptString(key AESKey) (string, error) {
	b, err := e.Decrypt(key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EncryptedPaste is a named text note, stored and transmitted with both
// fields encrypted (§3). Name is the stable identifier the server keys its
// store by.
type EncryptedPaste struct {
	Name    EncryptedData `json:"name"`
	Content EncryptedData `json:"content"`
}

// Equal reports whether two encrypted pastes are identical ciphertext.
func (p EncryptedPaste) Equal(o EncryptedPaste) bool {
	return p.Name.Equal(o.Name) && p.Content.Equal(o.Content)
}

// EncryptPaste encrypts a plaintext (name, content) pair under key.
func EncryptPaste(name, content string, key AESKey) (EncryptedPaste, error) {
	encName, err := EncryptString(name, key)
	if err != nil {
		return EncryptedPaste{}, err
	}
	encContent, err := EncryptString(content, key)
	if err != nil {
		return EncryptedPaste{}, err
	}
	return EncryptedPaste{Name: encName, Content: encContent}, nil
}

// Decrypt recovers the plaintext (name, content) pair.
func (p EncryptedPaste) Decrypt(key AESKey) (name string, content string, err error) {
	name, err = p.Name.DecryptString(key)
	if err != nil {
		return "", "", err
	}
	content, err = p.Content.DecryptString(key)
	if err != nil {
		return "", "", err
	}
	return name, content, nil
}
