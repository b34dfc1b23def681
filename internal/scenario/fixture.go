package scenario

import (
	"context"
	"fmt"

	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/internal/service"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PrepareArgs юзер с балансом Balance кладет в корзину Quantity копий фильма ценой Price.
type PrepareArgs struct {
	Username string
	Balance  decimal.Decimal
	Price    decimal.Decimal
	Stock    int32
	Quantity int32
}

func (a PrepareArgs) withDefaults() PrepareArgs {
	if a.Username == "" {
		a.Username = "deadlock-" + uuid.NewString()[:8]
	}
	if a.Balance.IsZero() {
		a.Balance = decimal.NewFromInt(100)
	}
	if a.Price.IsZero() {
		a.Price = decimal.NewFromInt(10)
	}
	if a.Quantity == 0 {
		a.Quantity = 2
	}
	if a.Stock == 0 {
		a.Stock = a.Quantity * 5 //nolint:mnd
	}
	return a
}

// Prepare создает юзера, фильм и корзину с позицией и оформляет корзину в заказ.
func (s *Scenario) Prepare(ctx context.Context, args PrepareArgs) (*Fixture, error) {
	args = args.withDefaults()

	var fx Fixture
	err := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		users, err := uow.GetAs[service.UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}
		carts, err := uow.GetAs[service.CartRepository](tx, uow.RepositoryName(repoargs.CartRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}
		movies, err := uow.GetAs[service.MovieRepository](tx, uow.RepositoryName(repoargs.MovieRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}

		user, err := users.CreateUser(c, repoargs.CreateUser{
			Name:         args.Username,
			PasswordHash: "-",
			Balance:      args.Balance,
		})
		if err != nil {
			return err //nolint:wrapcheck
		}
		if _, err = carts.Create(c, user.ID); err != nil {
			return err //nolint:wrapcheck
		}
		movie, err := movies.Create(c, repoargs.CreateMovie{
			Title: "Deadlock " + args.Username,
			Price: args.Price,
			Stock: args.Stock,
		})
		if err != nil {
			return err //nolint:wrapcheck
		}
		fx.UserID, fx.MovieID = user.ID, movie.ID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("preparing scenario: %w", err)
	}

	carts, err := service.NewCartService(s.uow, s.settings)
	if err != nil {
		return nil, fmt.Errorf("preparing scenario: %w", err)
	}
	if _, err = carts.AddItem(ctx, fx.UserID, fx.MovieID, args.Quantity); err != nil {
		return nil, fmt.Errorf("preparing scenario: %w", err)
	}

	orders, err := service.NewOrderService(s.uow, s.settings)
	if err != nil {
		return nil, fmt.Errorf("preparing scenario: %w", err)
	}
	order, err := orders.PlaceOrder(ctx, fx.UserID)
	if err != nil {
		return nil, fmt.Errorf("preparing scenario: %w", err)
	}
	fx.OrderID = order.ID
	return &fx, nil
}
