package protocol

import (
	"bytes"
	"testing"
)

func mustKey(t *testing.T) AESKey {
	t.Helper()
	k, err := GenerateAESKey()
	if err != nil {
		t.Fatalf("GenerateAESKey: %v", err)
	}
	return k
}

// TestEncryptDecryptRoundTrip checks invariant 1 of §8: decrypt(encrypt(P,
// K), K) = P, for plaintexts of various lengths relative to the block size.
func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := mustKey(t)
	cases := [][]byte{
		[]byte(""),
		[]byte("x"),
		[]byte("exactly16bytes!!"),
		[]byte("seventeen bytes!!"),
		bytes.Repeat([]byte("a"), 31),
		bytes.Repeat([]byte("a"), 32),
		bytes.Repeat([]byte("a"), 33),
	}
	for _, plaintext := range cases {
		enc, err := Encrypt(plaintext, key)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		got, err := enc.Decrypt(key)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", plaintext, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("round trip mismatch: got %q, want %q", got, plaintext)
		}
	}
}

// TestEncryptDeterministic checks invariant 2 of §8: two encryptions of the
// same (plaintext, key) must be byte-identical, since the server
// correlates requests and responses by ciphertext equality.
func TestEncryptDeterministic(t *testing.T) {
	key := mustKey(t)
	plaintext := []byte("my-secret-paste-name")
	a, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !a.Equal(b) {
		t.Fatalf("two encryptions of the same plaintext differ: %+v vs %+v", a, b)
	}
}

func TestEncryptDifferentKeysDiffer(t *testing.T) {
	k1 := mustKey(t)
	k2 := mustKey(t)
	plaintext := []byte("same plaintext")
	a, _ := Encrypt(plaintext, k1)
	b, _ := Encrypt(plaintext, k2)
	if a.Equal(b) {
		t.Fatalf("encryptions under different keys should not be equal")
	}
}

func TestEncryptedPasteRoundTrip(t *testing.T) {
	key := mustKey(t)
	p, err := EncryptPaste("todo", "buy milk", key)
	if err != nil {
		t.Fatalf("EncryptPaste: %v", err)
	}
	name, content, err := p.Decrypt(key)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if name != "todo" || content != "buy milk" {
		t.Fatalf("got (%q, %q), want (\"todo\", \"buy milk\")", name, content)
	}
}

// TestDecryptWrongKeyFails exercises the property the server's trial
// decryption (§4.4) depends on: AES-ECB itself never rejects a wrong key
// (there is no padding scheme or MAC to fail), so Decrypt must reject
// results that aren't valid UTF-8 text, or FindByCiphertext could never
// tell "wrong session" apart from "right session".
func TestDecryptWrongKeyFails(t *testing.T) {
	k1 := mustKey(t)
	k2 := mustKey(t)
	enc, err := EncryptString("a reasonably long paste name to decrypt", k1)
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	if _, err := enc.Decrypt(k2); err == nil {
		t.Fatalf("expected Decrypt under the wrong key to fail")
	}
	if _, err := enc.Decrypt(k1); err != nil {
		t.Fatalf("Decrypt under the right key should succeed: %v", err)
	}
}

func TestDecryptRejectsOutOfRangeZeroSuffixLen(t *testing.T) {
	key := mustKey(t)
	enc, err := EncryptString("sixteen bytes!!!", key)
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	enc.ZeroSuffixLen = blockSize
	if _, err := enc.Decrypt(key); err == nil {
		t.Fatalf("expected Decrypt to reject an out-of-range zero suffix length")
	}
}

func TestZeroSuffixLenWholeBlockMultiple(t *testing.T) {
	key := mustKey(t)
	plaintext := bytes.Repeat([]byte("b"), 32)
	enc, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if enc.ZeroSuffixLen != 0 {
		t.Fatalf("ZeroSuffixLen = %d, want 0 for whole-block-multiple plaintext", enc.ZeroSuffixLen)
	}
}
