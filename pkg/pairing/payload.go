// Package pairing moves an account's private key from an already-trusted
// device to a new one. The transfer is out-of-band and visual: the host
// renders the key as a scannable payload, the joiner samples a capture
// source until it decodes one. The key never crosses the network and the
// server is never involved in the transfer itself.
package pairing

import (
	"encoding/base64"
	"errors"

	"github.com/keyfold/keyfold/pkg/keyfold"
)

// HostPayload encodes private key material as the body of the scannable
// image. Presenting it is a user-initiated, time-bounded action on the
// host device.
func HostPayload(privateKeyPEM []byte) string {
	return base64.StdEncoding.EncodeToString(privateKeyPEM)
}

// ValidateMaterial decodes a captured payload and verifies it is
// structurally a private key. A public key or arbitrary bytes fail; the
// joiner treats that as a noisy frame, not an error.
func ValidateMaterial(payload string) (*keyfold.KeyPair, []byte, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, nil, errors.New("payload is not a pairing payload")
	}

	pair, err := keyfold.ParsePrivateKeyPEM(raw)
	if err != nil {
		return nil, nil, err
	}

	return pair, raw, nil
}
