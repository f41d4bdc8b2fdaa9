package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Device is one trusted device in the account's registry. Possession of a
// registered device id is what gates secret reads; the row carries no key
// material.
type Device struct {
	Id        string `gorm:"primaryKey"`
	AccountId string `gorm:"index"`
	Label     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d Device) TableName() string {
	return "devices"
}

func (d *Device) BeforeCreate(_ *gorm.DB) error {
	if d.Id == "" {
		d.Id = uuid.NewString()
	}
	return nil
}
