// Package keyfold provides the cryptographic core of the vault.
//
// Every secret field is protected by two layers applied in a fixed order:
// an asymmetric layer bound to the owning account's RSA public key, wrapped
// in a symmetric at-rest layer keyed by a deployment secret. The server can
// remove only the symmetric layer; the asymmetric layer is reversible solely
// by the private key held on the account's client devices.
//
// # Key pairs
//
// One RSA key pair is generated per account at registration:
//
//	pair, err := keyfold.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Stored server-side, immutable once set
//	publicPEM := pair.PublicPEM()
//
//	// Handed to the client exactly once, never persisted
//	privatePEM := pair.PrivatePEM()
//
// # At-rest encryption
//
// The AtRestCipher composes both layers:
//
//	cipher, err := keyfold.NewAtRestCipher(dataKey, salt, "sha256")
//
//	// Full pipeline: RSA-OAEP to the account key, then AES-GCM
//	stored, err := cipher.EncryptField([]byte("credential-id"), plaintext, pub)
//
//	// Server-side read path: removes ONLY the symmetric layer
//	transit, err := cipher.DecryptForTransit([]byte("credential-id"), stored)
package keyfold
