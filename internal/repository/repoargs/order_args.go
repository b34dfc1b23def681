package repoargs

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrder ID заказа задается явно: это ID корзины, из которой заказ создается.
type CreateOrder struct {
	ID     int64
	UserID uuid.UUID
	Total  decimal.Decimal
	Date   time.Time
}
