package repo

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись уже существует (конфликт уникальности).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState — операция невозможна в текущем состоянии.
	ErrInvalidState = errors.New("invalid state")
)

// Коды ошибок PostgreSQL, которые репозитории переводят в сентинелы.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// wrapDB переводит ошибку драйвера в сентинел пакета с контекстом
// операции: отсутствие строк — ErrNotFound, конфликт уникальности —
// ErrAlreadyExists, нарушение внешнего ключа — ErrInvalidState.
// Остальные ошибки оборачиваются как есть.
func wrapDB(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s (%s): %w", op, pgErr.ConstraintName, ErrAlreadyExists)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s (%s): %w", op, pgErr.ConstraintName, ErrInvalidState)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
