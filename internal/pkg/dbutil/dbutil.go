package dbutil

import (
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	codeUniqueViolation = "23505"
	codeDuplicateObject = "42710"
	codeDuplicateTable  = "42P07"
	codeDataException   = "22000"
)

// Finalize turns gendry's "?" placeholders into postgres "$n" ones.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

func pqCode(err error) pq.ErrorCode {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsConflict reports a unique constraint violation.
func IsConflict(err error) bool {
	return pqCode(err) == codeUniqueViolation
}

// IsAlreadyExists reports DDL that created an object twice.
func IsAlreadyExists(err error) bool {
	switch pqCode(err) {
	case codeDuplicateObject, codeDuplicateTable:
		return true
	}
	return false
}

// IsDimensionMismatch reports pgvector rejecting vectors of different
// lengths.
func IsDimensionMismatch(err error) bool {
	var pgErr *pq.Error
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeDataException && strings.Contains(pgErr.Message, "different vector dimensions")
}
