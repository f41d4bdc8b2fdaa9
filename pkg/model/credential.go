package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Credential is a username/password pair in a vault. Both secret fields are
// stored two-layer encrypted; the hooks below handle only the symmetric
// layer, with the row id as AAD.
type Credential struct {
	Id             string `gorm:"primaryKey"`
	VaultId        string `gorm:"index"`
	UsernameCipher []byte `gorm:"type:bytea"`
	PasswordCipher []byte `gorm:"type:bytea"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c Credential) TableName() string {
	return "credentials"
}

func (c *Credential) BeforeCreate(tx *gorm.DB) error {
	if c.Id == "" {
		c.Id = uuid.NewString()
	}
	return c.wrapFields(tx)
}

// BeforeUpdate wraps only the fields present on the update struct, so an
// untouched field keeps its stored ciphertext byte for byte.
func (c *Credential) BeforeUpdate(tx *gorm.DB) error {
	return c.wrapFields(tx)
}

func (c *Credential) AfterFind(tx *gorm.DB) error {
	cipher := getCipherForDb(tx)
	if cipher == nil {
		return errors.New("no cipher in db context")
	}

	var err error
	if c.UsernameCipher != nil {
		c.UsernameCipher, err = cipher.DecryptForTransit([]byte(c.Id), c.UsernameCipher)
		if err != nil {
			return fmt.Errorf("credential %s username: %w", c.Id, err)
		}
	}
	if c.PasswordCipher != nil {
		c.PasswordCipher, err = cipher.DecryptForTransit([]byte(c.Id), c.PasswordCipher)
		if err != nil {
			return fmt.Errorf("credential %s password: %w", c.Id, err)
		}
	}
	return nil
}

func (c *Credential) wrapFields(tx *gorm.DB) error {
	cipher := getCipherForDb(tx)
	if cipher == nil {
		return errors.New("no cipher in db context")
	}

	var err error
	if c.UsernameCipher != nil {
		c.UsernameCipher, err = cipher.WrapAtRest([]byte(c.Id), c.UsernameCipher)
		if err != nil {
			return err
		}
	}
	if c.PasswordCipher != nil {
		c.PasswordCipher, err = cipher.WrapAtRest([]byte(c.Id), c.PasswordCipher)
		if err != nil {
			return err
		}
	}
	return nil
}
