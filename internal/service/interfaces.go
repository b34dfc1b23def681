package service

import (
	"context"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/events"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(password string, hashedPassword string) bool
}

type UserRepository interface {
	CreateUser(ctx context.Context, user repoargs.CreateUser) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByName(ctx context.Context, name string) (*domain.User, error)
	LockByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	AddBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}

type MovieRepository interface {
	Create(ctx context.Context, movie repoargs.CreateMovie) (*domain.Movie, error)
	FindByID(ctx context.Context, id int64) (*domain.Movie, error)
	LockByID(ctx context.Context, id int64) (*domain.Movie, error)
	Update(ctx context.Context, id int64, movie repoargs.UpdateMovie) (*domain.Movie, error)
	Withdraw(ctx context.Context, id int64) error
	AttachActors(ctx context.Context, movieID int64, names []string) error
	Top(ctx context.Context, limit uint) ([]domain.Movie, error)
	Search(ctx context.Context, filter repoargs.MovieFilter) ([]domain.Movie, error)
	AdjustStock(ctx context.Context, id int64, delta int32) (int32, error)
	UpdateRating(ctx context.Context, id int64, rating float64, votes int32) error
	ListIDs(ctx context.Context, afterID int64, limit uint) ([]int64, error)
}

type CartRepository interface {
	Create(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	FindByID(ctx context.Context, id int64) (*domain.Cart, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error
	Delete(ctx context.Context, id int64) error
	ListIDs(ctx context.Context, afterID int64, limit uint) ([]int64, error)
}

type CartItemRepository interface {
	Find(ctx context.Context, cartID, movieID int64) (*domain.CartItem, error)
	Insert(ctx context.Context, item domain.CartItem) error
	UpdateQuantity(ctx context.Context, cartID, movieID int64, quantity int32) (int32, error)
	Delete(ctx context.Context, cartID, movieID int64) (int32, error)
	DeleteByCartID(ctx context.Context, cartID int64) ([]domain.CartItem, error)
	ListLines(ctx context.Context, cartID int64) ([]domain.CartLine, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order repoargs.CreateOrder) (*domain.Order, error)
	CopyItemsFromCart(ctx context.Context, orderID, cartID int64) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	ListSales(ctx context.Context, year int32, country string) ([]domain.Sale, error)
	Exists(ctx context.Context, id int64) (bool, error)
	MarkPaid(ctx context.Context, id int64) (*domain.Order, error)
	ListItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
}

type RatingRepository interface {
	Find(ctx context.Context, userID uuid.UUID, movieID int64) (*domain.Rating, error)
	Insert(ctx context.Context, rating domain.Rating) error
	Update(ctx context.Context, rating domain.Rating) error
	Aggregate(ctx context.Context, movieID int64) (*repoargs.RatingAggregate, error)
}

type EventPublisher interface {
	PublishOrderSettled(ctx context.Context, event events.OrderSettled) error
}

type MovieCache interface {
	Get(ctx context.Context, id int64) (*domain.Movie, error)
	Set(ctx context.Context, movie *domain.Movie) error
	Invalidate(ctx context.Context, id int64) error
}
