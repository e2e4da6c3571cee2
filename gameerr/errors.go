// gameerr/errors.go
package gameerr

import (
	"errors"
	"net/http"
)

// Domain errors. Handlers distinguish them with errors.Is; none of them are
// retryable by the caller. Anything outside this set is treated as an
// infrastructure failure and is safe to retry.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnsupported       = errors.New("unsupported")
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
)

// IsDomain reports whether err belongs to the domain taxonomy.
func IsDomain(err error) bool {
	for _, e := range []error{
		ErrNotFound, ErrConflict, ErrForbidden, ErrInvalidState,
		ErrInsufficientFunds, ErrUnsupported, ErrValidation, ErrUnauthorized,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// HTTPStatus maps an error to the status code the HTTP layer responds with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrUnsupported), errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
