package keyfold

import (
	"crypto/rsa"
)

// AtRestCipher applies the two-layer at-rest transform to secret fields:
// the asymmetric layer bound to the owning account's public key, wrapped in
// the symmetric layer keyed by the deployment secret. Decryption reverses
// the order, and the server-side path stops after the symmetric layer.
type AtRestCipher struct {
	sym SymmetricCipher
}

// NewAtRestCipher builds the cipher from operator configuration.
func NewAtRestCipher(dataKey, salt []byte, digest string) (*AtRestCipher, error) {
	sym, err := NewSymmetric(dataKey, salt, digest)
	if err != nil {
		return nil, err
	}

	return &AtRestCipher{sym: sym}, nil
}

// SealToPublicKey applies only the asymmetric layer. This is the step that
// makes the result unrecoverable without the account's private key.
func (c *AtRestCipher) SealToPublicKey(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	return EncryptToPublicKey(pub, plaintext)
}

// WrapAtRest applies only the symmetric layer on top of an already
// asymmetrically-encrypted blob. The storage hooks call this on write.
func (c *AtRestCipher) WrapAtRest(aad, sealed []byte) ([]byte, error) {
	return c.sym.Encrypt(aad, sealed)
}

// EncryptField runs the full pipeline: asymmetric then symmetric. The
// output is what gets persisted.
func (c *AtRestCipher) EncryptField(aad, plaintext []byte, pub *rsa.PublicKey) ([]byte, error) {
	sealed, err := c.SealToPublicKey(pub, plaintext)
	if err != nil {
		return nil, err
	}

	return c.WrapAtRest(aad, sealed)
}

// DecryptForTransit removes ONLY the symmetric layer, returning the still
// asymmetrically-encrypted blob for the client to finish. It is the only
// decrypt operation the server performs; the asymmetric layer cannot be
// removed here because the server holds no private key.
func (c *AtRestCipher) DecryptForTransit(aad, stored []byte) ([]byte, error) {
	return c.sym.Decrypt(aad, stored)
}
