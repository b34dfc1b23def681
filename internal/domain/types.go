package domain

import "fmt"

// LockOrdering порядок захвата блокировок строк User и CartItem в операциях с корзиной.
type LockOrdering string

const (
	// LockOrderingStrict сначала блокируется строка User, затем строки CartItem. Совпадает с порядком расчета
	// заказа, поэтому взаимная блокировка невозможна.
	LockOrderingStrict LockOrdering = "strict"
	// LockOrderingCrossed сначала пишутся строки CartItem, затем блокируется User. Воспроизводит deadlock
	// с расчетом заказа.
	LockOrderingCrossed LockOrdering = "crossed"
)

func ParseLockOrdering(s string) (LockOrdering, error) {
	switch LockOrdering(s) {
	case LockOrderingStrict, LockOrderingCrossed:
		return LockOrdering(s), nil
	case "":
		return LockOrderingStrict, nil
	default:
		return "", fmt.Errorf("unknown lock ordering `%s`", s)
	}
}

const (
	MinRatingScore = 0
	MaxRatingScore = 10
)
