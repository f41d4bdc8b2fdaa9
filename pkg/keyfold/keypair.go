package keyfold

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
)

// ErrPayloadTooLarge is returned when a plaintext exceeds the maximum size
// the asymmetric layer can wrap for the given key modulus.
var ErrPayloadTooLarge = errors.New("payload exceeds asymmetric size bound")

// ErrNotPrivateKey is returned when key material parses but is not a
// private key (for example, a public key fed to the pairing joiner).
var ErrNotPrivateKey = errors.New("material is not a private key")

const keyBits = 2048

// KeyPair wraps an account's RSA key pair. The private half exists only in
// memory during registration and on client devices; it is never persisted
// server-side.
type KeyPair struct {
	privateKey  *rsa.PrivateKey
	fingerprint string // lazy; reset if privateKey ever changes
}

// GenerateKeyPair generates a fresh 2048-bit RSA pair for a new account.
func GenerateKeyPair() (*KeyPair, error) {
	pkey, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, err
	}

	return &KeyPair{privateKey: pkey}, nil
}

// ParsePrivateKeyPEM parses PEM-encoded PKCS#1 private key material.
// Material that decodes to anything other than a private key fails with
// ErrNotPrivateKey; the pairing joiner relies on that distinction.
func ParsePrivateKeyPEM(data []byte) (*KeyPair, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if block.Type != "RSA PRIVATE KEY" {
		return nil, ErrNotPrivateKey
	}

	pkey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, ErrNotPrivateKey
	}

	return &KeyPair{privateKey: pkey}, nil
}

// ParsePublicKeyPEM parses a PEM-encoded PKIX public key.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return rsaPub, nil
}

// PrivatePEM returns the PEM-encoded private key.
func (k *KeyPair) PrivatePEM() []byte {
	return pem.EncodeToMemory(
		&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(k.privateKey),
		},
	)
}

// PublicPEM returns the PEM-encoded PKIX public key.
func (k *KeyPair) PublicPEM() []byte {
	bytes, err := x509.MarshalPKIXPublicKey(&k.privateKey.PublicKey)
	if err != nil {
		panic(err)
	}
	return pem.EncodeToMemory(
		&pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: bytes,
		},
	)
}

// Public returns the public half.
func (k *KeyPair) Public() *rsa.PublicKey {
	return &k.privateKey.PublicKey
}

// Decrypt removes the asymmetric layer. This only ever runs on a client
// device holding the private key.
func (k *KeyPair) Decrypt(ciphertext []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), nil, k.privateKey, ciphertext, nil)
}

// Fingerprint returns the hex SHA-256 of the DER public key.
func (k *KeyPair) Fingerprint() string {
	if len(k.fingerprint) > 0 {
		return k.fingerprint
	}

	der, err := x509.MarshalPKIXPublicKey(&k.privateKey.PublicKey)
	if err != nil {
		return ""
	}

	k.fingerprint = hex.EncodeToString(sha256Digest(der))
	return k.fingerprint
}

// MaxPayload returns the largest plaintext the asymmetric layer can wrap
// for the given key: modulus minus OAEP overhead.
func MaxPayload(pub *rsa.PublicKey) int {
	return pub.Size() - 2*sha256.Size - 2
}

// EncryptToPublicKey applies the asymmetric layer: RSA-OAEP to the account's
// public key. Oversized plaintexts fail with ErrPayloadTooLarge rather than
// being truncated.
func EncryptToPublicKey(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	if len(plaintext) > MaxPayload(pub) {
		return nil, ErrPayloadTooLarge
	}

	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
}

func sha256Digest(value []byte) []byte {
	hash := sha256.New()
	hash.Write(value)
	return hash.Sum(nil)
}
