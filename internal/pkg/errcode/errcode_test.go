package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"provider", fmt.Errorf("%w: provider: %w", appErr.ErrProvider, errors.New("503")), ErrProvider},
		{"generation wraps credentials", fmt.Errorf("%w: %w", appErr.ErrGenerationFailure, appErr.ErrMissingCredentials), ErrMissingCredentials},
		{"empty collection", fmt.Errorf("%w: abc", appErr.ErrEmptyCollection), ErrEmptyCollection},
		{"not found", appErr.ErrNotFound, ErrNotFound},
		{"dimension mismatch", fmt.Errorf("%w: query 3, stored 4", appErr.ErrDimensionMismatch), ErrDimensionMismatch},
		{"unknown", errors.New("boom"), ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := FromError(tt.err)
			require.Equal(t, tt.code, code)
			require.NotEmpty(t, msg)
		})
	}
}
