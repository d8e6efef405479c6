package protocol

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// RSAKeyBits is the modulus size mandated by §6: the client's only
// self-asserted identity.
const RSAKeyBits = 1024

// AESKeyBytes is the session key size mandated by §6.
const AESKeyBytes = 32

// AESKey is a 256-bit session key.
type AESKey [AESKeyBytes]byte

// PubKeyPEM is the PEM encoding of an RSA public key (PKIX, "PUBLIC KEY"
// block), the form in which public keys travel over the board and are
// compared for equality by peers.
type PubKeyPEM []byte

// Equal compares two PEM-encoded public keys by their encoded bytes. Two
// keys produced by PublicKeyPEM for the same rsa.PublicKey always compare
// equal, which is what the handshake in §4.3 relies on.
func (p PubKeyPEM) Equal(o PubKeyPEM) bool {
	return string(p) == string(o)
}

// Key returns a string usable as a map key, e.g. for the server's session
// table (keyed by client public key, §3).
func (p PubKeyPEM) Key() string { return string(p) }

// GenerateRSAKeyPair creates a fresh RSA-1024 key pair, per §3's lifecycle:
// called on first run or on explicit user regeneration.
func GenerateRSAKeyPair() (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, RSAKeyBits)
	if err != nil {
		return nil, &CryptoError{Op: "rsa.GenerateKey", Err: err}
	}
	return key, nil
}

// PublicKeyPEM marshals an RSA public key to its canonical PEM form.
func PublicKeyPEM(pub *rsa.PublicKey) (PubKeyPEM, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, &CryptoError{Op: "x509.MarshalPKIXPublicKey", Err: err}
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return PubKeyPEM(pem.EncodeToMemory(block)), nil
}

// ParsePublicKeyPEM inverts PublicKeyPEM.
func ParsePublicKeyPEM(p PubKeyPEM) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(p)
	if block == nil {
		return nil, &CryptoError{Op: "pem.Decode", Err: fmt.Errorf("not a PEM block")}
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, &CryptoError{Op: "x509.ParsePKIXPublicKey", Err: err}
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, &CryptoError{Op: "x509.ParsePKIXPublicKey", Err: fmt.Errorf("not an RSA public key")}
	}
	return rsaPub, nil
}

// GenerateAESKey creates a fresh 256-bit session key, per §4.4's greet and
// rotation handling.
func GenerateAESKey() (AESKey, error) {
	var k AESKey
	if _, err := rand.Read(k[:]); err != nil {
		return AESKey{}, &CryptoError{Op: "rand.Read", Err: err}
	}
	return k, nil
}

// WrapAESKey implements rsa_wrap: PKCS#1 v1.5 encryption of the AES key
// under the client's RSA public key (§4.1).
func WrapAESKey(pub *rsa.PublicKey, key AESKey) ([]byte, error) {
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, pub, key[:])
	if err != nil {
		return nil, &CryptoError{Op: "rsa.EncryptPKCS1v15", Err: err}
	}
	return ciphertext, nil
}

// UnwrapAESKey implements rsa_unwrap, inverting WrapAESKey. It fails with a
// CryptoError if the blob is malformed or was not wrapped under priv.
func UnwrapAESKey(priv *rsa.PrivateKey, wrapped []byte) (AESKey, error) {
	plain, err := rsa.DecryptPKCS1v15(rand.Reader, priv, wrapped)
	if err != nil {
		return AESKey{}, &CryptoError{Op: "rsa.DecryptPKCS1v15", Err: err}
	}
	if len(plain) != AESKeyBytes {
		return AESKey{}, &CryptoError{Op: "rsa.DecryptPKCS1v15", Err: fmt.Errorf("unwrapped key has length %d, want %d", len(plain), AESKeyBytes)}
	}
	var k AESKey
	copy(k[:], plain)
	return k, nil
}
