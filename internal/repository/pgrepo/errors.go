package pgrepo

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode      = "23505"
	foreignKeyViolationCode  = "23503"
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
)

// convertErr преобразует ошибку к стандартному виду для слоя репозитория.
// Добавляет форматированное сообщение контекста, тип бизнес-ошибки и оригинальное сообщение.
// Особенности:
//   - Для ошибок отсутствия данных (pgx.ErrNoRows) возвращает ErrRecordNotFound из domain.
//   - Коды Postgres сопоставляются с ошибками domain: дубликат ключа, нарушение внешнего ключа,
//     deadlock и serialization failure. Последние две вызывающий код может повторить (domain.IsRetryable).
//   - Все остальные ошибки возвращаются как ErrUnknown с оригинальным сообщением.
func convertErr(err error, format string, formatArgs ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, formatArgs...)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("[repository/%s] %w", msg, domain.ErrRecordNotFound)
	}

	var pgErr *pgconn.PgError
	errType := domain.ErrUnknown

	if errors.As(err, &pgErr) {
		errType = errTypeByCode(pgErr.Code)
	}

	return fmt.Errorf("[repository/%s] %w: %s", msg, errType, err.Error())
}

func errTypeByCode(code string) error {
	switch code {
	case uniqueViolationCode:
		return domain.ErrDuplicateKey
	case foreignKeyViolationCode:
		return domain.ErrForeignKey
	case deadlockDetectedCode:
		return domain.ErrDeadlock
	case serializationFailureCode:
		return domain.ErrSerialization
	default:
		return domain.ErrUnknown
	}
}

// notFoundIfNoRows возвращает ErrRecordNotFound, если запрос на изменение не затронул ни одной строки.
func notFoundIfNoRows(tag pgconn.CommandTag, format string, formatArgs ...any) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("[repository/%s] %w", fmt.Sprintf(format, formatArgs...), domain.ErrRecordNotFound)
	}
	return nil
}
