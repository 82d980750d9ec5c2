package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "letterdesk/internal/errors"
)

// translate maps gorm errors onto the domain taxonomy. Anything that is not a
// missing row or a uniqueness violation is treated as an infrastructure fault.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", apperrors.ErrConflict, err)
	default:
		return fmt.Errorf("%w: %w", apperrors.ErrUnavailable, err)
	}
}
