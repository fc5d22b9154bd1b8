package errcode

import (
	"errors"

	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrInternal
	ErrInvalidFile
	ErrUploadFailed
	ErrUploadDisabled
	ErrMissingCredentials
	ErrUnsupportedModel
	ErrProvider
	ErrGenerationFailure
	ErrEmptyCollection
	ErrMissingDistance
	ErrUnsupportedRetrievalMethod
	ErrDimensionMismatch
)

var sentinels = []struct {
	err  error
	code int
	msg  string
}{
	{appErr.ErrMissingCredentials, ErrMissingCredentials, "provider credentials missing"},
	{appErr.ErrUnsupportedModel, ErrUnsupportedModel, "unsupported embedding model"},
	{appErr.ErrUnsupportedRetrievalMethod, ErrUnsupportedRetrievalMethod, "unsupported retrieval method"},
	{appErr.ErrGenerationFailure, ErrGenerationFailure, "hypothetical document generation failed"},
	{appErr.ErrEmptyCollection, ErrEmptyCollection, "collection is empty"},
	{appErr.ErrMissingDistance, ErrMissingDistance, "search returned no distance"},
	{appErr.ErrDimensionMismatch, ErrDimensionMismatch, "query vector does not match collection dimension"},
	{appErr.ErrProvider, ErrProvider, "provider request failed"},
	{appErr.ErrUnauthorized, ErrUnauthorized, "unauthorized"},
	{appErr.ErrForbidden, ErrForbidden, "forbidden"},
	{appErr.ErrNotFound, ErrNotFound, "not found"},
	{appErr.ErrInvalid, ErrInvalid, "invalid request"},
	{appErr.ErrConflict, ErrConflict, "conflict"},
	{appErr.ErrTooMany, ErrTooMany, "too many requests"},
}

// FromError maps err to its response code and a client-safe message.
// Earlier entries win when err wraps several sentinels.
func FromError(err error) (int, string) {
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.code, s.msg
		}
	}
	return ErrInternal, "internal error"
}
