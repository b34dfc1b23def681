package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/events"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var hundred = decimal.NewFromInt(100)

type OrderService struct {
	runner    *txRunner
	settings  Settings
	orderRepo OrderRepository
	adjuster  InventoryAdjuster
	log       *logrus.Entry
}

func NewOrderService(u uow.UOW, settings Settings) (*OrderService, error) {
	orderRepo, err := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &OrderService{
		runner:    newTxRunner(u, settings, "order"),
		settings:  settings,
		orderRepo: orderRepo,
		adjuster:  InventoryAdjuster{metrics: settings.Metrics},
		log: settings.logger().WithFields(logrus.Fields{
			"component": "service",
			"module":    "order",
		}),
	}, nil
}

// Settlement результат расчета заказа. Settled = false, если заказ уже был оплачен и повторный вызов
// ничего не изменил.
type Settlement struct {
	Order   domain.Order
	Settled bool
	NewCart *domain.Cart
	Balance decimal.Decimal
}

// OrderView заказ вместе с позициями.
type OrderView struct {
	Order domain.Order
	Items []domain.OrderItem
}

// PlaceOrder оформляет текущую корзину юзера в неоплаченный заказ с id корзины. Итог заказа - итог корзины
// со скидкой юзера. Пустая корзина возвращает domain.ErrEmptyCart, нехватка баланса -
// domain.ErrNotEnoughBalance, повторное оформление - *domain.DuplicateOrderError.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	ctx, finish := startSpan(ctx, "OrderService.PlaceOrder")
	var order *domain.Order
	err := s.runner.run(ctx, "place_order", func(c context.Context, tx uow.TX) error {
		r, err := reposOf(tx)
		if err != nil {
			return err
		}
		order, err = s.placeOrder(c, r, userID)
		return err
	})
	finish(err)
	if err != nil {
		return nil, fmt.Errorf("placing order: %w", err)
	}
	return order, nil
}

// MarkPaid переводит заказ в оплаченный и рассчитывает его: списывает баланс владельца, удаляет позиции
// и саму корзину заказа и создает владельцу новую пустую корзину. Все в одной транзакции.
func (s *OrderService) MarkPaid(ctx context.Context, orderID int64) (*Settlement, error) {
	return s.pay(ctx, "mark_paid", orderID, nil)
}

// Pay то же, что MarkPaid, но только для заказа юзера userID. Чужой заказ выглядит как отсутствующий.
func (s *OrderService) Pay(ctx context.Context, userID uuid.UUID, orderID int64) (*Settlement, error) {
	return s.pay(ctx, "pay_order", orderID, &userID)
}

// Checkout оформляет корзину в заказ и сразу рассчитывает его в одной транзакции.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID) (*Settlement, error) {
	ctx, finish := startSpan(ctx, "OrderService.Checkout")
	var settlement *Settlement
	err := s.runner.run(ctx, "checkout", func(c context.Context, tx uow.TX) error {
		r, err := reposOf(tx)
		if err != nil {
			return err
		}
		order, err := s.placeOrder(c, r, userID)
		if err != nil {
			return err
		}
		settlement, err = s.settle(c, r, order.ID)
		return err
	})
	finish(err)
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}
	s.afterSettlement(ctx, settlement)
	return settlement, nil
}

// Get возвращает заказ юзера с позициями.
func (s *OrderService) Get(ctx context.Context, userID uuid.UUID, orderID int64) (*OrderView, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("getting order %d: %w", orderID, domain.ErrRecordNotFound)
	}
	items, err := s.orderRepo.ListItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	return &OrderView{Order: *order, Items: items}, nil
}

// GetByUserID заказы юзера, новые первыми.
func (s *OrderService) GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting orders: %w", err)
	}
	return orders, nil
}

// Sales заказы года year юзеров с национальностью country, по возрастанию даты. Год берется по UTC.
func (s *OrderService) Sales(ctx context.Context, year int32, country string) ([]domain.Sale, error) {
	country = strings.TrimSpace(country)
	if year < 1 || year > 9999 || country == "" {
		return nil, fmt.Errorf("getting sales: %w", domain.ErrInvalidFilter)
	}
	sales, err := s.orderRepo.ListSales(ctx, year, country)
	if err != nil {
		return nil, fmt.Errorf("getting sales of %d in %s: %w", year, country, err)
	}
	return sales, nil
}

func (s *OrderService) pay(ctx context.Context, operation string, orderID int64, owner *uuid.UUID) (*Settlement, error) {
	ctx, finish := startSpan(ctx, "OrderService.MarkPaid")
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("order.id", orderID))

	var settlement *Settlement
	err := s.runner.run(ctx, operation, func(c context.Context, tx uow.TX) error {
		r, err := reposOf(tx)
		if err != nil {
			return err
		}
		if owner != nil {
			order, findErr := r.orders.FindByID(c, orderID)
			if findErr != nil {
				return findErr //nolint:wrapcheck
			}
			if order.UserID != *owner {
				return fmt.Errorf("order %d: %w", orderID, domain.ErrRecordNotFound)
			}
		}
		settlement, err = s.settle(c, r, orderID)
		return err
	})
	finish(err)
	if err != nil {
		return nil, fmt.Errorf("marking order %d paid: %w", orderID, err)
	}
	s.afterSettlement(ctx, settlement)
	return settlement, nil
}

func (s *OrderService) placeOrder(ctx context.Context, r *txRepos, userID uuid.UUID) (*domain.Order, error) {
	user, err := r.users.LockByID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if !user.Active {
		return nil, domain.ErrUserInactive
	}
	cart, err := r.carts.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	lines, err := r.items.ListLines(ctx, cart.ID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	total := applyDiscount(sumLines(lines), user.Discount)
	if user.Balance.LessThan(total) {
		return nil, domain.ErrNotEnoughBalance
	}

	// после ошибки уникальности транзакция Postgres уже прервана, поэтому дубликат проверяется заранее.
	existing, err := r.orders.FindByID(ctx, cart.ID)
	switch {
	case err == nil:
		return nil, domain.NewDuplicateOrderError(existing)
	case !errors.Is(err, domain.ErrRecordNotFound):
		return nil, err //nolint:wrapcheck
	}

	order, err := r.orders.Create(ctx, repoargs.CreateOrder{
		ID:     cart.ID,
		UserID: userID,
		Total:  total,
		Date:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if err = r.orders.CopyItemsFromCart(ctx, order.ID, cart.ID); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return order, nil
}

// settle переход paid false -> true и его последствия. Уже оплаченный заказ возвращается без изменений.
func (s *OrderService) settle(ctx context.Context, r *txRepos, orderID int64) (*Settlement, error) {
	order, err := r.orders.MarkPaid(ctx, orderID)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return nil, err //nolint:wrapcheck
		}
		// перехода не было: либо заказа нет, либо он уже оплачен.
		existing, findErr := r.orders.FindByID(ctx, orderID)
		if findErr != nil {
			return nil, findErr //nolint:wrapcheck
		}
		return &Settlement{Order: *existing}, nil
	}

	balance, err := r.users.AddBalance(ctx, order.UserID, order.Total.Neg())
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if balance.IsNegative() {
		return nil, domain.ErrNotEnoughBalance
	}
	s.settings.fire(ctx, StepBalanceDebited)

	purged, err := r.items.DeleteByCartID(ctx, order.ID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if err = s.adjuster.ItemsDeleted(ctx, r, purged); err != nil {
		return nil, err
	}
	s.settings.fire(ctx, StepCartPurged)

	if err = r.carts.Delete(ctx, order.ID); err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, err //nolint:wrapcheck
	}
	newCart, err := r.carts.Create(ctx, order.UserID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &Settlement{Order: *order, Settled: true, NewCart: newCart, Balance: balance}, nil
}

// afterSettlement метрики и событие после коммита. Ошибка публикации только логируется.
func (s *OrderService) afterSettlement(ctx context.Context, st *Settlement) {
	if st == nil || !st.Settled {
		return
	}
	s.settings.Metrics.OrderSettled(st.Order.Total)

	if s.settings.Publisher == nil {
		return
	}
	event := events.NewOrderSettled(st.Order.ID, st.Order.UserID, st.Order.Total, st.Balance, st.NewCart.ID)
	if err := s.settings.Publisher.PublishOrderSettled(ctx, event); err != nil {
		s.log.WithError(err).WithField("orderID", st.Order.ID).Warn("publishing order settled event")
	}
}

// applyDiscount итог со скидкой discount процентов, округленный до копеек.
func applyDiscount(total, discount decimal.Decimal) decimal.Decimal {
	if discount.IsZero() {
		return total
	}
	return total.Mul(hundred.Sub(discount)).Div(hundred).Round(2)
}
