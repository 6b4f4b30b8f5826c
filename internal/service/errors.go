// Package service holds the business rules of the gateway: credential
// handling, token issuance, role resolution and the owner-checked resource
// operations.  Services speak apperr; storage sentinels never leak past
// this package.
package service

import (
	"errors"

	"github.com/iliyamo/rolegate/internal/apperr"
	"github.com/iliyamo/rolegate/internal/repository"
)

// storeErr maps a storage error about a resource named what to an apperr.
func storeErr(err error, what string) error {
	if err == nil {
		return nil
	}
	var dup *repository.DuplicateKeyError
	switch {
	case errors.As(err, &dup):
		return apperr.Duplicate(dup.Field)
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(what)
	case errors.Is(err, repository.ErrForbidden):
		return apperr.Forbidden("you do not own this " + what)
	case errors.Is(err, repository.ErrInsufficientSeats):
		return apperr.Conflict("not enough seats available")
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict(what + " is not in a state that allows this operation")
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err)
}

// fieldErrors accumulates per-field validation messages.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperr.Validation(f)
}
