package dbutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalize(t *testing.T) {
	query, args := Finalize("SELECT id FROM collections WHERE name=? AND ctime>? LIMIT ?", []interface{}{"a", 1, 2})
	require.Equal(t, "SELECT id FROM collections WHERE name=$1 AND ctime>$2 LIMIT $3", query)
	require.Len(t, args, 3)
}

func TestErrorCodes(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	require.True(t, IsConflict(dup))
	require.False(t, IsAlreadyExists(dup))

	require.True(t, IsAlreadyExists(&pq.Error{Code: "42P07"}))
	require.True(t, IsAlreadyExists(&pq.Error{Code: "42710"}))

	require.False(t, IsConflict(errors.New("plain")))
	require.False(t, IsConflict(nil))

	dims := fmt.Errorf("query: %w", &pq.Error{Code: "22000", Message: "different vector dimensions 3 and 4"})
	require.True(t, IsDimensionMismatch(dims))
	require.False(t, IsDimensionMismatch(&pq.Error{Code: "22000", Message: "division by zero"}))
	require.False(t, IsDimensionMismatch(errors.New("different vector dimensions")))
}
