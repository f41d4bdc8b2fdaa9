package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vault groups the credentials and OTP seeds for one service or site. Its
// name and URL are not secrets and are stored in the clear.
type Vault struct {
	Id        string `gorm:"primaryKey"`
	AccountId string `gorm:"index"`
	Name      string
	Url       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (v Vault) TableName() string {
	return "vaults"
}

func (v *Vault) BeforeCreate(_ *gorm.DB) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	return nil
}
