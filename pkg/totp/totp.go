// Package totp derives time-windowed one-time codes from a shared seed
// (RFC 6238). Codes are a pure function of seed and time; periodic
// recomputation is the caller's concern.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"strings"
	"time"
)

// ErrUnsupportedAlgorithm is returned for hash algorithm identifiers other
// than the supported SHA family variants.
var ErrUnsupportedAlgorithm = errors.New("unsupported TOTP algorithm")

const (
	DefaultDigits = 6
	DefaultPeriod = 30
)

func hashFunc(algorithm string) (func() hash.Hash, error) {
	// Seeds imported from provisioning URIs spell these with a dash.
	switch strings.ToUpper(strings.ReplaceAll(algorithm, "-", "")) {
	case "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}

// ValidateAlgorithm reports whether the algorithm name is one this engine
// can derive codes with.
func ValidateAlgorithm(algorithm string) error {
	_, err := hashFunc(algorithm)
	return err
}

// Code computes the one-time code for the window containing at, plus the
// seconds remaining in that window. Two calls with identical inputs yield
// identical output; there is no internal state.
func Code(seed string, digits, period int, algorithm string, at time.Time) (string, int, error) {
	if digits <= 0 {
		digits = DefaultDigits
	}
	if period <= 0 {
		period = DefaultPeriod
	}

	h, err := hashFunc(algorithm)
	if err != nil {
		return "", 0, err
	}

	seedBytes, err := decodeSeed(seed)
	if err != nil {
		return "", 0, fmt.Errorf("bad TOTP seed: %w", err)
	}
	defer zero(seedBytes)

	epochSeconds := at.UnixMilli() / 1000
	counter := uint64(epochSeconds / int64(period))
	remaining := period - int(epochSeconds%int64(period))

	return hotp(h, seedBytes, counter, digits), remaining, nil
}

// hotp implements RFC 4226 dynamic truncation.
func hotp(h func() hash.Hash, seed []byte, counter uint64, digits int) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)

	mac := hmac.New(h, seed)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0F
	trunc := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7FFFFFFF

	mod := uint32(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, trunc%mod)
}

func decodeSeed(seed string) ([]byte, error) {
	seed = strings.ToUpper(strings.TrimSpace(seed))
	seed = strings.TrimRight(seed, "=")
	decoder := base32.StdEncoding.WithPadding(base32.NoPadding)
	return decoder.DecodeString(seed)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
