package storage

import (
	"fmt"

	"github.com/himanishpuri/soundmark/pkg/models"
)

// wrapErr tags a backend failure with models.ErrStorage.
func wrapErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrStorage, op, err)
}
