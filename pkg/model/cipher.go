package model

import (
	"gorm.io/gorm"
)

// Cipher is the symmetric at-rest layer applied by the storage hooks. The
// asymmetric layer is applied before rows reach this package and removed
// only on client devices.
type Cipher interface {
	WrapAtRest(aad, sealed []byte) ([]byte, error)
	DecryptForTransit(aad, stored []byte) ([]byte, error)
}

// getCipherForDb pulls the at-rest cipher out of the DB context. The
// connection helper in pkg/db puts it there.
func getCipherForDb(tx *gorm.DB) Cipher {
	cipher, _ := tx.Statement.Context.Value("cipher").(Cipher)
	return cipher
}
