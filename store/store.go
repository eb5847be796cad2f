package store

import (
	"gorm.io/gorm"

	"github.com/medhist/annotation-iam/errors"
)

// translate maps gorm sentinel errors onto the service error kinds. what
// names the entity for the caller-facing description.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrap(errors.ErrNotFound, what+" not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Wrap(errors.ErrConflict, what+" already exists", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return errors.Wrap(errors.ErrConflict, what+" conflicts with related records", err)
	default:
		return err
	}
}

// affected turns a zero-row write into a not found error.
func affected(res *gorm.DB, what string) error {
	if res.Error != nil {
		return translate(res.Error, what)
	}
	if res.RowsAffected == 0 {
		return errors.NotFoundError(what + " not found")
	}
	return nil
}
