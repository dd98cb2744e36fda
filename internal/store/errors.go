package store

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound — запись не найдена
	ErrNotFound = errors.New("not found")
	// ErrDuplicate — нарушена уникальность пары (snippet_id, reviewer_email)
	ErrDuplicate = errors.New("duplicate review")
	// ErrCompleted — квота сниппета уже исчерпана
	ErrCompleted = errors.New("snippet completed")
)

// IsUniqueViolation распознаёт нарушение уникального ограничения
// для postgres (23505) и sqlite, в том числе после TranslateError
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "sqlstate 23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint failed")
}
