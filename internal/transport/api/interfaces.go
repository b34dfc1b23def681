package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserServicer интерфейс исключительно для моков.
type UserServicer interface {
	Register(ctx context.Context, args service.RegisterUserArgs) (*domain.User, string, error)
	Login(ctx context.Context, args service.LoginUserArgs) (*domain.User, string, error)
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Get(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

type MovieServicer interface {
	Get(ctx context.Context, id int64) (*domain.Movie, error)
	Top(ctx context.Context, n uint) ([]domain.Movie, error)
	Search(ctx context.Context, filter repoargs.MovieFilter) ([]domain.Movie, error)
	Create(ctx context.Context, args repoargs.CreateMovie) (*domain.Movie, error)
	Update(ctx context.Context, id int64, args repoargs.UpdateMovie) (*domain.Movie, error)
	Withdraw(ctx context.Context, id int64) error
}

type RatingServicer interface {
	Submit(ctx context.Context, userID uuid.UUID, movieID int64, score float64) (*domain.Movie, error)
}

type CartServicer interface {
	Get(ctx context.Context, userID uuid.UUID) (*service.CartView, error)
	AddItem(ctx context.Context, userID uuid.UUID, movieID int64, quantity int32) (*service.CartView, error)
	SetQuantity(ctx context.Context, userID uuid.UUID, movieID int64, quantity int32) (*service.CartView, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, movieID int64, quantity int32) (*service.CartView, error)
	Clear(ctx context.Context, userID uuid.UUID) (*service.CartView, error)
}

type OrderServicer interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID) (*domain.Order, error)
	Pay(ctx context.Context, userID uuid.UUID, orderID int64) (*service.Settlement, error)
	Checkout(ctx context.Context, userID uuid.UUID) (*service.Settlement, error)
	Get(ctx context.Context, userID uuid.UUID, orderID int64) (*service.OrderView, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	Sales(ctx context.Context, year int32, country string) ([]domain.Sale, error)
}
