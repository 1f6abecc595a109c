// Package repository provides data access interfaces and implementations
// for the research aggregation service.
//
// Repositories follow the repository pattern to abstract persistence from
// business logic. All implementations are safe for concurrent use; the
// underlying pgxpool handles connection pooling and synchronization.
//
// All methods return domain-specific errors from the domain package:
//
//   - domain.ErrNotFound: resource does not exist
//   - domain.ErrAlreadyExists: unique constraint violation
//   - domain.ErrTerminalState: disallowed job status transition
//
// Repositories depend on the narrow DBTX query interface rather than the
// concrete pool, which keeps them testable with pgxmock.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/research-aggregation-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction
// contexts. This allows repositories to work with both direct pool
// connections and transactions, and makes them testable with pgxmock.
type DBTX = database.DBTX

// pgUniqueViolation is the PostgreSQL unique_violation error code.
const pgUniqueViolation = "23505"

// Pagination defaults and limits for list queries.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// normalizePagination clamps limit to [1, maxListLimit] and offset to >= 0.
func normalizePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// isPgUniqueViolation checks if the error is a PostgreSQL unique
// constraint violation.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
