package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OtpSeed is a TOTP seed in a vault. The label and seed are stored
// two-layer encrypted; digits, period and algorithm are derivation
// parameters, not secrets, and stay in the clear.
type OtpSeed struct {
	Id          string `gorm:"primaryKey"`
	VaultId     string `gorm:"index"`
	LabelCipher []byte `gorm:"type:bytea"`
	SeedCipher  []byte `gorm:"type:bytea"`
	Digits      int
	Period      int
	Algorithm   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (o OtpSeed) TableName() string {
	return "otp_seeds"
}

func (o *OtpSeed) BeforeCreate(tx *gorm.DB) error {
	if o.Id == "" {
		o.Id = uuid.NewString()
	}
	return o.wrapFields(tx)
}

func (o *OtpSeed) BeforeUpdate(tx *gorm.DB) error {
	return o.wrapFields(tx)
}

func (o *OtpSeed) AfterFind(tx *gorm.DB) error {
	cipher := getCipherForDb(tx)
	if cipher == nil {
		return errors.New("no cipher in db context")
	}

	var err error
	if o.LabelCipher != nil {
		o.LabelCipher, err = cipher.DecryptForTransit([]byte(o.Id), o.LabelCipher)
		if err != nil {
			return fmt.Errorf("otp seed %s label: %w", o.Id, err)
		}
	}
	if o.SeedCipher != nil {
		o.SeedCipher, err = cipher.DecryptForTransit([]byte(o.Id), o.SeedCipher)
		if err != nil {
			return fmt.Errorf("otp seed %s seed: %w", o.Id, err)
		}
	}
	return nil
}

func (o *OtpSeed) wrapFields(tx *gorm.DB) error {
	cipher := getCipherForDb(tx)
	if cipher == nil {
		return errors.New("no cipher in db context")
	}

	var err error
	if o.LabelCipher != nil {
		o.LabelCipher, err = cipher.WrapAtRest([]byte(o.Id), o.LabelCipher)
		if err != nil {
			return err
		}
	}
	if o.SeedCipher != nil {
		o.SeedCipher, err = cipher.WrapAtRest([]byte(o.Id), o.SeedCipher)
		if err != nil {
			return err
		}
	}
	return nil
}
