package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")

	ErrMissingCredentials         = errors.New("missing credentials")
	ErrUnsupportedModel           = errors.New("unsupported embedding model")
	ErrProvider                   = errors.New("provider error")
	ErrGenerationFailure          = errors.New("hypothetical document generation failed")
	ErrEmptyCollection            = errors.New("empty collection")
	ErrMissingDistance            = errors.New("missing distance")
	ErrUnsupportedRetrievalMethod = errors.New("unsupported retrieval method")
	ErrDimensionMismatch          = errors.New("vector dimension mismatch")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsRetryable reports whether err may succeed when attempted again.
// Only upstream provider failures qualify; credential and validation
// errors are terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingCredentials) || errors.Is(err, ErrUnsupportedModel) {
		return false
	}
	return errors.Is(err, ErrProvider)
}
