// Package apperr holds the error taxonomy shared by the catalog, feed,
// ledger and recommendation components.
package apperr

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyJoined = errors.New("product already joined")
	ErrForbidden     = errors.New("forbidden")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("already exists")

	// ErrOrphanOption marks a rate option whose parent product is not in the
	// catalog. Reconciliation skips the row.
	ErrOrphanOption = errors.New("option has no parent product")

	ErrUpstreamFetch       = errors.New("upstream fetch failed")
	ErrRecommendationParse = errors.New("recommendation reply could not be parsed")
)

// FromGorm converts gorm errors found anywhere in the chain to the
// package sentinels and returns other errors unchanged.
func FromGorm(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}
