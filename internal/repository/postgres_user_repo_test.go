package repository

import (
	"errors"
	"testing"

	"github.com/lib/pq"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// PostgresCategoryRepoはCategoryRepositoryインターフェースを満たすことを検証
func TestPostgresCategoryRepo_ImplementsInterface(t *testing.T) {
	var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
}

// isUniqueViolationがpqの一意制約違反コードのみを判定することを検証
func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Error("code 23505 should be a unique violation")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("code 23503 (foreign key) should not be a unique violation")
	}
	if isUniqueViolation(errors.New("random error")) {
		t.Error("non-pq error should not be a unique violation")
	}
	if isUniqueViolation(nil) {
		t.Error("nil should not be a unique violation")
	}
}
