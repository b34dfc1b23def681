package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrPasswordMissMatch = errors.New("password mismatch")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrForeignKey        = errors.New("foreign key violation")
	ErrUnknown           = errors.New("unknown error")

	// ErrDeadlock и ErrSerialization транзакция прервана базой, ее можно повторить целиком.
	ErrDeadlock      = errors.New("deadlock detected")
	ErrSerialization = errors.New("serialization failure")

	ErrNotEnoughBalance = errors.New("not enough balance")
	ErrOutOfStock       = errors.New("out of stock")
	ErrTooManyItems     = errors.New("too many items to remove")
	ErrEmptyCart        = errors.New("empty cart")
	ErrInvalidRating    = errors.New("invalid rating")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrUserInactive     = errors.New("user inactive")
	ErrMovieUnavailable = errors.New("movie unavailable")
	ErrEmptyUpdate      = errors.New("nothing to update")
	ErrInvalidFilter    = errors.New("invalid filter")
	ErrInvalidMovie     = errors.New("invalid movie")
	ErrAdminRequired    = errors.New("admin required")
)

// IsRetryable сообщает, можно ли повторить транзакцию, завершившуюся ошибкой err.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDeadlock) || errors.Is(err, ErrSerialization)
}

type DuplicateOrderError struct {
	Order *Order
}

func NewDuplicateOrderError(order *Order) error {
	return &DuplicateOrderError{Order: order}
}

func (e *DuplicateOrderError) Error() string {
	return fmt.Sprintf(
		"order with id %d already exists for user with id %s",
		e.Order.ID,
		e.Order.UserID,
	)
}

// OutOfStockError изменение позиции корзины увело бы остаток фильма в минус.
type OutOfStockError struct {
	MovieID   int64
	Available int32
	Requested int32
}

func NewOutOfStockError(movieID int64, available, requested int32) error {
	return &OutOfStockError{MovieID: movieID, Available: available, Requested: requested}
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf(
		"movie %d: requested %d, available %d",
		e.MovieID,
		e.Requested,
		e.Available,
	)
}

func (e *OutOfStockError) Unwrap() error {
	return ErrOutOfStock
}
