package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the postgres pool. TranslateError is on so a unique
// constraint violation comes back as gorm.ErrDuplicatedKey, which is how
// concurrent duplicate-email registrations get resolved.
func Connect(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
}
