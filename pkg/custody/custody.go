// Package custody is the client-local home for private key material and the
// device identifier. It is deliberately separate from server storage: the
// server never sees what goes in here after initial issuance.
package custody

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNoMaterial is returned by Load when nothing is stored for the account.
var ErrNoMaterial = errors.New("no key material in custody")

// Material is what a trusted device holds for one account.
type Material struct {
	PrivateKeyPEM []byte `json:"private_key_pem"`
	DeviceID      string `json:"device_id"`
}

// Store is the local key-custody interface, keyed by account id.
type Store interface {
	Store(accountID string, material Material) error
	Load(accountID string) (Material, error)
	Clear(accountID string) error
}

// FileStore keeps one file per account under a directory, mode 0600.
// A platform keychain would slot in behind the same interface.
type FileStore struct {
	dir string
}

// NewFileStore creates the custody directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".keyfold", "custody")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create custody dir: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(accountID string) string {
	return filepath.Join(s.dir, accountID+".json")
}

func (s *FileStore) Store(accountID string, material Material) error {
	data, err := json.Marshal(material)
	if err != nil {
		return err
	}

	return os.WriteFile(s.path(accountID), data, 0o600)
}

func (s *FileStore) Load(accountID string) (Material, error) {
	data, err := os.ReadFile(s.path(accountID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Material{}, ErrNoMaterial
		}
		return Material{}, err
	}

	var material Material
	if err := json.Unmarshal(data, &material); err != nil {
		return Material{}, err
	}

	return material, nil
}

func (s *FileStore) Clear(accountID string) error {
	err := os.Remove(s.path(accountID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
