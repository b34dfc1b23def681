package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartService struct {
	runner     *txRunner
	settings   Settings
	cartRepo   CartRepository
	itemRepo   CartItemRepository
	adjuster   InventoryAdjuster
	aggregator CartAggregator
}

func NewCartService(u uow.UOW, settings Settings) (*CartService, error) {
	cartRepo, err := uow.GetRepositoryAs[CartRepository](u, uow.RepositoryName(repoargs.CartRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	itemRepo, err := uow.GetRepositoryAs[CartItemRepository](u, uow.RepositoryName(repoargs.CartItemRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &CartService{
		runner:   newTxRunner(u, settings, "cart"),
		settings: settings,
		cartRepo: cartRepo,
		itemRepo: itemRepo,
		adjuster: InventoryAdjuster{metrics: settings.Metrics},
	}, nil
}

// CartView корзина вместе с позициями.
type CartView struct {
	Cart  domain.Cart
	Lines []domain.CartLine
}

func (s *CartService) Get(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting cart: %w", err)
	}
	lines, err := s.itemRepo.ListLines(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("getting cart: %w", err)
	}
	return &CartView{Cart: *cart, Lines: lines}, nil
}

// AddItem добавляет quantity экземпляров фильма в корзину: новая позиция или увеличение существующей.
// Снятый с продажи фильм добавить нельзя: вернется domain.ErrMovieUnavailable.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, movieID int64, quantity int32) (*CartView, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("adding item: %w", domain.ErrInvalidQuantity)
	}
	view, err := s.mutate(ctx, "add_item", userID, func(c context.Context, r *txRepos, cart *domain.Cart) error {
		if err := s.checkAvailable(c, r, movieID); err != nil {
			return err
		}
		item, err := r.items.Find(c, cart.ID, movieID)
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			return s.insert(c, r, domain.CartItem{CartID: cart.ID, MovieID: movieID, Quantity: quantity})
		case err != nil:
			return err //nolint:wrapcheck
		}
		return s.update(c, r, cart.ID, movieID, item.Quantity+quantity)
	})
	if err != nil {
		return nil, fmt.Errorf("adding item: %w", err)
	}
	return view, nil
}

// SetQuantity выставляет количество позиции. Количество 0 удаляет позицию.
func (s *CartService) SetQuantity(ctx context.Context, userID uuid.UUID, movieID int64, quantity int32) (*CartView, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("setting item quantity: %w", domain.ErrInvalidQuantity)
	}
	view, err := s.mutate(ctx, "set_quantity", userID, func(c context.Context, r *txRepos, cart *domain.Cart) error {
		item, err := r.items.Find(c, cart.ID, movieID)
		if err != nil {
			if !errors.Is(err, domain.ErrRecordNotFound) {
				return err //nolint:wrapcheck
			}
			if quantity == 0 {
				return nil
			}
			if movieErr := s.checkAvailable(c, r, movieID); movieErr != nil {
				return movieErr
			}
			return s.insert(c, r, domain.CartItem{CartID: cart.ID, MovieID: movieID, Quantity: quantity})
		}
		if quantity == 0 {
			return s.delete(c, r, *item)
		}
		return s.update(c, r, cart.ID, movieID, quantity)
	})
	if err != nil {
		return nil, fmt.Errorf("setting item quantity: %w", err)
	}
	return view, nil
}

// RemoveItem убирает quantity экземпляров фильма из корзины. Убрать больше, чем лежит в корзине, нельзя:
// вернется domain.ErrTooManyItems.
func (s *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, movieID int64, quantity int32) (*CartView, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("removing item: %w", domain.ErrInvalidQuantity)
	}
	view, err := s.mutate(ctx, "remove_item", userID, func(c context.Context, r *txRepos, cart *domain.Cart) error {
		item, err := r.items.Find(c, cart.ID, movieID)
		if err != nil {
			return err //nolint:wrapcheck
		}
		switch {
		case quantity > item.Quantity:
			return domain.ErrTooManyItems
		case quantity == item.Quantity:
			return s.delete(c, r, *item)
		default:
			return s.update(c, r, cart.ID, movieID, item.Quantity-quantity)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("removing item: %w", err)
	}
	return view, nil
}

// Clear удаляет все позиции корзины и возвращает их остатки.
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	view, err := s.mutate(ctx, "clear_cart", userID, func(c context.Context, r *txRepos, cart *domain.Cart) error {
		deleted, err := r.items.DeleteByCartID(c, cart.ID)
		if err != nil {
			return err //nolint:wrapcheck
		}
		return s.adjuster.ItemsDeleted(c, r, deleted)
	})
	if err != nil {
		return nil, fmt.Errorf("clearing cart: %w", err)
	}
	return view, nil
}

// RecomputeTotal пересчитывает итог корзины. Используется для сверки.
func (s *CartService) RecomputeTotal(ctx context.Context, cartID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.runner.run(ctx, "recompute_cart_total", func(c context.Context, tx uow.TX) error {
		r, err := reposOf(tx)
		if err != nil {
			return err
		}
		total, err = s.aggregator.Recalculate(c, r, cartID)
		return err
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("recomputing total of cart %d: %w", cartID, err)
	}
	return total, nil
}

// mutate выполняет изменение позиций корзины юзера в одной транзакции: fn, затем пересчет итога.
// Порядок блокировок задается настройкой: при строгом порядке строка юзера блокируется до позиций,
// при перекрестном - после.
func (s *CartService) mutate(
	ctx context.Context,
	operation string,
	userID uuid.UUID,
	fn func(ctx context.Context, r *txRepos, cart *domain.Cart) error,
) (*CartView, error) {
	ctx, finish := startSpan(ctx, "CartService."+operation)
	var view *CartView
	err := s.runner.run(ctx, operation, func(c context.Context, tx uow.TX) error {
		r, err := reposOf(tx)
		if err != nil {
			return err
		}

		crossed := s.settings.ordering() == domain.LockOrderingCrossed
		if !crossed {
			if err = s.lockOwner(c, r, userID); err != nil {
				return err
			}
		}

		cart, err := r.carts.FindByUserID(c, userID)
		if err != nil {
			return err //nolint:wrapcheck
		}
		if err = fn(c, r, cart); err != nil {
			return err
		}
		if cart.Total, err = s.aggregator.Recalculate(c, r, cart.ID); err != nil {
			return err
		}
		s.settings.fire(c, StepItemsWritten)

		if crossed {
			if err = s.lockOwner(c, r, userID); err != nil {
				return err
			}
		}

		lines, err := r.items.ListLines(c, cart.ID)
		if err != nil {
			return err //nolint:wrapcheck
		}
		view = &CartView{Cart: *cart, Lines: lines}
		return nil
	})
	finish(err)
	return view, err
}

func (s *CartService) lockOwner(ctx context.Context, r *txRepos, userID uuid.UUID) error {
	user, err := r.users.LockByID(ctx, userID)
	if err != nil {
		return err //nolint:wrapcheck
	}
	if !user.Active {
		return domain.ErrUserInactive
	}
	s.settings.fire(ctx, StepOwnerLocked)
	return nil
}

// checkAvailable проверяет, что фильм существует и не снят с продажи.
func (s *CartService) checkAvailable(ctx context.Context, r *txRepos, movieID int64) error {
	movie, err := r.movies.FindByID(ctx, movieID)
	if err != nil {
		return err //nolint:wrapcheck
	}
	if !movie.Available {
		return domain.ErrMovieUnavailable
	}
	return nil
}

func (s *CartService) insert(ctx context.Context, r *txRepos, item domain.CartItem) error {
	if err := r.items.Insert(ctx, item); err != nil {
		return err //nolint:wrapcheck
	}
	return s.adjuster.ItemInserted(ctx, r, item)
}

func (s *CartService) update(ctx context.Context, r *txRepos, cartID, movieID int64, quantity int32) error {
	old, err := r.items.UpdateQuantity(ctx, cartID, movieID, quantity)
	if err != nil {
		return err //nolint:wrapcheck
	}
	return s.adjuster.ItemUpdated(ctx, r, cartID, movieID, old, quantity)
}

func (s *CartService) delete(ctx context.Context, r *txRepos, item domain.CartItem) error {
	old, err := r.items.Delete(ctx, item.CartID, item.MovieID)
	if err != nil {
		return err //nolint:wrapcheck
	}
	item.Quantity = old
	return s.adjuster.ItemDeleted(ctx, r, item)
}
