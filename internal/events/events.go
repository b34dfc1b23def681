// Package events публикация доменных событий после коммита транзакции. Публикация best effort:
// ошибка брокера логируется и не откатывает уже зафиксированный расчет заказа.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const TopicOrderSettled = "order.settled"

type OrderSettled struct {
	EventID   string          `json:"event_id"`
	OrderID   int64           `json:"order_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Total     decimal.Decimal `json:"total"`
	Balance   decimal.Decimal `json:"balance"`
	NewCartID int64           `json:"new_cart_id"`
	SettledAt time.Time       `json:"settled_at"`
}

func NewOrderSettled(orderID int64, userID uuid.UUID, total, balance decimal.Decimal, newCartID int64) OrderSettled {
	return OrderSettled{
		EventID:   uuid.NewString(),
		OrderID:   orderID,
		UserID:    userID,
		Total:     total,
		Balance:   balance,
		NewCartID: newCartID,
		SettledAt: time.Now().UTC(),
	}
}

type Publisher interface {
	PublishOrderSettled(ctx context.Context, event OrderSettled) error
	Close() error
}

// Nop публикатор по умолчанию, когда брокеры не настроены.
type Nop struct{}

func (Nop) PublishOrderSettled(context.Context, OrderSettled) error { return nil }
func (Nop) Close() error                                            { return nil }
