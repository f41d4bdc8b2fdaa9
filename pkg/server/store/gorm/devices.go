package gorm

import (
	"errors"

	"gorm.io/gorm"

	"github.com/keyfold/keyfold/pkg/model"
	"github.com/keyfold/keyfold/pkg/server/store"
)

// Ensure DevicesStore implements store.DevicesStore
var _ store.DevicesStore = (*DevicesStore)(nil)

// DevicesStore implements store.DevicesStore using GORM
type DevicesStore struct {
	db *gorm.DB
}

// NewDevicesStore creates a new DevicesStore
func NewDevicesStore(db *gorm.DB) *DevicesStore {
	return &DevicesStore{db: db}
}

// RegisterDevice adds a device to the account's trust registry.
func (s *DevicesStore) RegisterDevice(accountID, label string) (*model.Device, error) {
	device := &model.Device{
		AccountId: accountID,
		Label:     label,
	}
	if err := s.db.Create(device).Error; err != nil {
		return nil, err
	}
	return device, nil
}

// AuthorizeDevice checks the exact (account, device) pair.
func (s *DevicesStore) AuthorizeDevice(accountID, deviceID string) error {
	var device model.Device
	err := s.db.Where("id = ? AND account_id = ?", deviceID, accountID).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return store.ErrDeviceNotRegistered
		}
		return err
	}
	return nil
}

// ListDevices returns the account's registered devices.
func (s *DevicesStore) ListDevices(accountID string) ([]model.Device, error) {
	var devices []model.Device
	err := s.db.Where("account_id = ?", accountID).Order("created_at asc").Find(&devices).Error
	return devices, err
}

// RenameDevice updates a device label.
func (s *DevicesStore) RenameDevice(accountID, deviceID, label string) error {
	tx := s.db.Model(&model.Device{}).
		Where("id = ? AND account_id = ?", deviceID, accountID).
		Update("label", label)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RevokeDevice removes the device row. Stored ciphertext is untouched.
func (s *DevicesStore) RevokeDevice(accountID, deviceID string) error {
	tx := s.db.Where("id = ? AND account_id = ?", deviceID, accountID).Delete(&model.Device{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
