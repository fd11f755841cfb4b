package db

import (
	"errors"

	"gorm.io/gorm"
)

// IsNotFound reports whether the error is a gorm record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKey reports whether the error is a unique constraint violation.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
