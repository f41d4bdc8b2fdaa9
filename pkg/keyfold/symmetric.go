package keyfold

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const ivSize = 12
const tagSize = aes.BlockSize
const versionMagic = byte('K')
const kdfIterations = 100_000

// ErrDecryptionFailed is returned when the symmetric layer cannot be
// removed: wrong data key, salt or digest, or corrupted ciphertext. It is a
// caller error (4xx), never a crash.
var ErrDecryptionFailed = errors.New("decryption failed")

// SymmetricCipher is the server-side at-rest layer.
type SymmetricCipher interface {
	Decrypt(aad, packedText []byte) ([]byte, error)
	Encrypt(aad, plainText []byte) ([]byte, error)
}

type Symmetric struct {
	aesgcm cipher.AEAD
}

// digestFunc maps an operator-configured digest name to its constructor.
// The digest takes part in key derivation, so changing it invalidates all
// existing ciphertext.
func digestFunc(digest string) (func() hash.Hash, error) {
	switch digest {
	case "sha256":
		return sha256.New, nil
	case "sha512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unsupported at-rest digest %q", digest)
	}
}

// NewSymmetric derives a 256-bit AES key from the deployment data key, salt
// and digest, and returns an AES-GCM cipher over it. All three inputs are
// operator-configured and never user-controlled.
func NewSymmetric(dataKey, salt []byte, digest string) (SymmetricCipher, error) {
	if len(dataKey) == 0 {
		return nil, errors.New("empty data key")
	}
	if len(salt) == 0 {
		return nil, errors.New("empty salt")
	}

	h, err := digestFunc(digest)
	if err != nil {
		return nil, err
	}

	key := pbkdf2.Key(dataKey, salt, kdfIterations, 32, h)

	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(c)
	if err != nil {
		return nil, err
	}

	return &Symmetric{aesgcm: aesgcm}, nil
}

func (s Symmetric) Decrypt(aad, packedText []byte) ([]byte, error) {
	if len(packedText) < 1+tagSize+ivSize {
		return nil, ErrDecryptionFailed
	}
	if packedText[0] != versionMagic {
		return nil, ErrDecryptionFailed
	}

	cipherText, iv := unpackCipherData(packedText)

	plaintext, err := s.aesgcm.Open(nil, iv, cipherText, aad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func (s Symmetric) Encrypt(aad, plainText []byte) ([]byte, error) {
	nonce, err := RandomNonce()
	if err != nil {
		return nil, err
	}

	return s.encrypt(aad, plainText, nonce)
}

func (s Symmetric) encrypt(aad, plainText, nonce []byte) ([]byte, error) {
	if len(nonce) < ivSize {
		return nil, errors.New("nonce size is too short")
	}

	cipherTextWithTag := s.aesgcm.Seal(nil, nonce, plainText, aad)
	return packCipherData(cipherTextWithTag, nonce), nil
}

// RandomNonce returns a fresh GCM nonce.
func RandomNonce() ([]byte, error) {
	// Never use more than 2^32 random nonces with a given key because of
	// the risk of a repeat.
	return RandomBytes(ivSize)
}

// RandomBytes returns size cryptographically random bytes.
func RandomBytes(size int) ([]byte, error) {
	value := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, value); err != nil {
		return nil, err
	}

	return value, nil
}

// packCipherData lays the ciphertext out as "magic | tag | iv | ctext".
func packCipherData(cipherTextWithTag []byte, iv []byte) []byte {
	iv = iv[:ivSize]

	tagStartIndex := len(cipherTextWithTag) - tagSize
	tag := cipherTextWithTag[tagStartIndex:]
	cipherText := cipherTextWithTag[:tagStartIndex]

	data := make([]byte, 1+tagSize+ivSize+len(cipherText))
	data[0] = versionMagic
	index := 1

	copy(data[index:], tag)
	index += tagSize

	copy(data[index:], iv)
	index += ivSize

	copy(data[index:], cipherText)

	return data
}

func unpackCipherData(packedText []byte) ([]byte, []byte) {
	index := 1 // skip magic

	nextIndex := index + tagSize
	tag := packedText[index:nextIndex]
	index = nextIndex

	nextIndex = index + ivSize
	iv := packedText[index:nextIndex]
	index = nextIndex

	cipherText := append(append([]byte{}, packedText[index:]...), tag...)

	return cipherText, iv
}
