package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account roles. The first account registered on a deployment becomes the
// owner; everyone after that is standard.
const (
	RoleOwner    = "owner"
	RoleStandard = "standard"
)

type Account struct {
	Id           string `gorm:"primaryKey"`
	Name         string
	Email        string `gorm:"uniqueIndex"`
	PasswordHash []byte `gorm:"type:bytea"`
	// PublicKeyPem is set once at registration and never changes; the
	// matching private key is returned to the caller at that moment and
	// never stored.
	PublicKeyPem      []byte `gorm:"type:bytea"`
	Role              string
	VerificationToken *string
	RecoveryToken     *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt
}

func (a Account) TableName() string {
	return "accounts"
}

func (a *Account) BeforeCreate(_ *gorm.DB) error {
	if a.Id == "" {
		a.Id = uuid.NewString()
	}
	if a.Role == "" {
		a.Role = RoleStandard
	}
	return nil
}

// Verified reports whether the account has redeemed its verification token.
func (a *Account) Verified() bool {
	return a.VerificationToken == nil
}
