package gorm

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/keyfold/keyfold/pkg/keyfold"
)

// MockDB wraps sqlmock for easier test setup
type MockDB struct {
	DB     *sql.DB
	Mock   sqlmock.Sqlmock
	GormDB *gorm.DB
}

// NewMockDB creates a new mock database connection. If a cipher is given
// it is attached to the context the way pkg/db does, so the model hooks
// fire during tests.
func NewMockDB(t *testing.T, cipher *keyfold.AtRestCipher) *MockDB {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 db,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	if err != nil {
		_ = db.Close()
		t.Fatalf("failed to open gorm over sqlmock: %v", err)
	}

	if cipher != nil {
		ctx := context.WithValue(context.Background(), "cipher", cipher)
		gormDB = gormDB.WithContext(ctx)
	}

	return &MockDB{DB: db, Mock: mock, GormDB: gormDB}
}

// Close closes the mock database
func (m *MockDB) Close() error {
	return m.DB.Close()
}

// VerifyExpectations checks that all expectations were met
func (m *MockDB) VerifyExpectations(t *testing.T) {
	t.Helper()
	if err := m.Mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func testCipher(t *testing.T) *keyfold.AtRestCipher {
	t.Helper()
	cipher, err := keyfold.NewAtRestCipher([]byte("test-data-key"), []byte("test-salt"), "sha256")
	if err != nil {
		t.Fatalf("NewAtRestCipher: %v", err)
	}
	return cipher
}
