package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           uuid.UUID
	Name         string
	PasswordHash string
	Token        string
	Nationality  string
	Discount     decimal.Decimal // процент скидки, 0..100
	Balance      decimal.Decimal
	Admin        bool
	Active       bool
}

type Movie struct {
	ID          int64
	Title       string
	Description string
	Year        int32
	Genre       string
	Price       decimal.Decimal
	Rating      float64
	Stock       int32
	Votes       int32
	Available   bool
}

// Cart активная корзина юзера. Total кэшируется и пересчитывается после каждого изменения позиций.
type Cart struct {
	ID     int64
	UserID uuid.UUID
	Total  decimal.Decimal
}

type CartItem struct {
	CartID   int64
	MovieID  int64
	Quantity int32
}

// CartLine позиция корзины вместе с текущей ценой фильма.
type CartLine struct {
	MovieID  int64
	Title    string
	Price    decimal.Decimal
	Quantity int32
}

// LineTotal цена позиции: price * quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt32(l.Quantity))
}

// Order снимок корзины. ID совпадает с ID корзины, из которой заказ создан.
type Order struct {
	ID     int64
	UserID uuid.UUID
	Total  decimal.Decimal
	Date   time.Time
	Paid   bool
}

type OrderItem struct {
	OrderID  int64
	MovieID  int64
	Quantity int32
}

// Sale заказ в статистике продаж вместе с именем покупателя.
type Sale struct {
	OrderID  int64
	Date     time.Time
	Total    decimal.Decimal
	Paid     bool
	UserName string
}

type Rating struct {
	UserID  uuid.UUID
	MovieID int64
	Score   float64
}
