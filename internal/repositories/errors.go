package repositories

import (
	stderrors "errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = stderrors.New("record not found")
	// ErrConflict is returned when a versioned write lost against a concurrent writer.
	ErrConflict = stderrors.New("version conflict")
)

func notFound(err error) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
