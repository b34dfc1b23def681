package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/events"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/internal/service/mocks"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type OrderServiceTestSuite struct {
	storeSuite
	mockPublisher *mocks.MockEventPublisher
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

func (s *OrderServiceTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	s.mockPublisher = mocks.NewMockEventPublisher(mockCtrl)
	s.setup(Settings{Publisher: s.mockPublisher})
}

// placedOrder юзер с балансом 100 и скидкой 10%, в корзине 2 фильма по 20, корзина оформлена в заказ.
func (s *OrderServiceTestSuite) placedOrder() (*domain.User, *domain.Movie, *domain.Order) {
	ctx := s.T().Context()
	user := s.newUser("100", "10")
	movie := s.newMovie("20", 5)

	_, err := s.services.CartService.AddItem(ctx, user.ID, movie.ID, 2)
	s.Require().NoError(err)

	order, err := s.services.OrderService.PlaceOrder(ctx, user.ID)
	s.Require().NoError(err)
	return user, movie, order
}

func (s *OrderServiceTestSuite) TestPlaceOrder() {
	ctx := s.T().Context()
	user, movie, order := s.placedOrder()

	cart, err := s.carts().FindByUserID(ctx, user.ID)
	s.Require().NoError(err)

	s.Equal(cart.ID, order.ID)
	s.True(dec("36").Equal(order.Total), "total %s", order.Total)
	s.False(order.Paid)

	view, err := s.services.OrderService.Get(ctx, user.ID, order.ID)
	s.Require().NoError(err)
	s.Equal([]domain.OrderItem{{OrderID: order.ID, MovieID: movie.ID, Quantity: 2}}, view.Items)

	// оформление заказа не трогает остаток и не снимает деньги.
	s.Equal(int32(3), s.stock(movie.ID))
	s.True(dec("100").Equal(s.balance(user.ID)))

	_, err = s.services.OrderService.PlaceOrder(ctx, user.ID)
	var dupErr *domain.DuplicateOrderError
	s.Require().ErrorAs(err, &dupErr)
	s.Equal(order.ID, dupErr.Order.ID)
}

func (s *OrderServiceTestSuite) TestPlaceOrderErrors() {
	ctx := s.T().Context()
	movie := s.newMovie("50", 5)

	empty := s.newUser("100", "0")
	_, err := s.services.OrderService.PlaceOrder(ctx, empty.ID)
	s.Require().ErrorIs(err, domain.ErrEmptyCart)

	poor := s.newUser("49.99", "0")
	_, err = s.services.CartService.AddItem(ctx, poor.ID, movie.ID, 1)
	s.Require().NoError(err)
	_, err = s.services.OrderService.PlaceOrder(ctx, poor.ID)
	s.Require().ErrorIs(err, domain.ErrNotEnoughBalance)

	_, err = s.services.OrderService.PlaceOrder(ctx, uuid.New())
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *OrderServiceTestSuite) TestMarkPaidSettlesOnce() {
	ctx := s.T().Context()
	user, movie, order := s.placedOrder()

	s.mockPublisher.EXPECT().
		PublishOrderSettled(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event events.OrderSettled) error {
			s.Equal(order.ID, event.OrderID)
			s.Equal(user.ID, event.UserID)
			s.True(dec("64").Equal(event.Balance))
			return nil
		}).Times(1)

	settlement, err := s.services.OrderService.MarkPaid(ctx, order.ID)
	s.Require().NoError(err)
	s.True(settlement.Settled)
	s.True(settlement.Order.Paid)
	s.True(dec("64").Equal(settlement.Balance))
	s.Require().NotNil(settlement.NewCart)
	s.NotEqual(order.ID, settlement.NewCart.ID)

	s.assertSettledState(user.ID, movie.ID, order.ID)

	// повторная оплата ничего не меняет.
	again, err := s.services.OrderService.MarkPaid(ctx, order.ID)
	s.Require().NoError(err)
	s.False(again.Settled)
	s.True(again.Order.Paid)
	s.assertSettledState(user.ID, movie.ID, order.ID)
}

func (s *OrderServiceTestSuite) TestMarkPaidNotEnoughBalanceRollsBack() {
	ctx := s.T().Context()
	user, movie, order := s.placedOrder()

	_, err := s.users().AddBalance(ctx, user.ID, dec("-90"))
	s.Require().NoError(err)

	_, err = s.services.OrderService.MarkPaid(ctx, order.ID)
	s.Require().ErrorIs(err, domain.ErrNotEnoughBalance)

	stored, err := s.orders().FindByID(ctx, order.ID)
	s.Require().NoError(err)
	s.False(stored.Paid)
	s.True(dec("10").Equal(s.balance(user.ID)))

	view, err := s.services.CartService.Get(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(order.ID, view.Cart.ID)
	s.Len(view.Lines, 1)
	s.Equal(int32(3), s.stock(movie.ID))
}

func (s *OrderServiceTestSuite) TestMarkPaidMissingOrder() {
	_, err := s.services.OrderService.MarkPaid(s.T().Context(), 404)
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *OrderServiceTestSuite) TestPayForeignOrder() {
	ctx := s.T().Context()
	_, _, order := s.placedOrder()
	stranger := s.newUser("100", "0")

	_, err := s.services.OrderService.Pay(ctx, stranger.ID, order.ID)
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)

	_, err = s.services.OrderService.Get(ctx, stranger.ID, order.ID)
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *OrderServiceTestSuite) TestCheckout() {
	ctx := s.T().Context()
	user := s.newUser("100", "0")
	movie := s.newMovie("12.50", 4)

	_, err := s.services.CartService.AddItem(ctx, user.ID, movie.ID, 2)
	s.Require().NoError(err)

	s.mockPublisher.EXPECT().PublishOrderSettled(gomock.Any(), gomock.Any()).Return(nil)

	settlement, err := s.services.OrderService.Checkout(ctx, user.ID)
	s.Require().NoError(err)
	s.True(settlement.Settled)
	s.True(dec("25").Equal(settlement.Order.Total))
	s.True(dec("75").Equal(s.balance(user.ID)))
	s.assertSettledState(user.ID, movie.ID, settlement.Order.ID)
	s.Equal(int32(2), s.stock(movie.ID))

	orders, err := s.services.OrderService.GetByUserID(ctx, user.ID)
	s.Require().NoError(err)
	s.Len(orders, 1)

	// новая корзина живет своей жизнью: остаток снова следует за позициями.
	_, err = s.services.CartService.AddItem(ctx, user.ID, movie.ID, 1)
	s.Require().NoError(err)
	s.Equal(int32(1), s.stock(movie.ID))
}

func (s *OrderServiceTestSuite) TestPublishFailureDoesNotFailSettlement() {
	ctx := s.T().Context()
	_, _, order := s.placedOrder()

	s.mockPublisher.EXPECT().PublishOrderSettled(gomock.Any(), gomock.Any()).Return(domain.ErrUnknown)

	settlement, err := s.services.OrderService.MarkPaid(ctx, order.ID)
	s.Require().NoError(err)
	s.True(settlement.Settled)
}

func (s *OrderServiceTestSuite) TestClearPlacedCartKeepsStock() {
	ctx := s.T().Context()
	user, movie, order := s.placedOrder()

	view, err := s.services.CartService.Clear(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(order.ID, view.Cart.ID)
	s.Empty(view.Lines)
	// позиции уже принадлежат заказу, остаток не возвращается.
	s.Equal(int32(3), s.stock(movie.ID))
}

// TestCheckoutRacingCrossedClear расчет корзины прерывается взаимной блокировкой с очисткой той же корзины.
// Незафиксированный заказ не виден очистке, поэтому она возвращает остаток, а откат расчета его не трогает.
func (s *OrderServiceTestSuite) TestCheckoutRacingCrossedClear() {
	ctx := s.T().Context()
	user := s.newUser("100", "0")
	movie := s.newMovie("10", 10)
	_, err := s.services.CartService.AddItem(ctx, user.ID, movie.ID, 2)
	s.Require().NoError(err)
	s.Equal(int32(8), s.stock(movie.ID))

	single := RetryPolicy{MaxAttempts: 1}
	debited := make(chan struct{})
	var debitOnce sync.Once

	orderSvc, err := NewOrderService(s.store, Settings{
		Logger: s.settings.Logger,
		Retry:  single,
		Hook: func(_ context.Context, step Step) {
			if step != StepBalanceDebited {
				return
			}
			debitOnce.Do(func() { close(debited) })
			// очистка удалила позиции и ждет строку юзера, которую держит расчет.
			s.Eventually(func() bool { return s.store.WaitingLocks() == 1 }, time.Second, time.Millisecond)
		},
	})
	s.Require().NoError(err)
	cartSvc, err := NewCartService(s.store, Settings{
		Ordering: domain.LockOrderingCrossed,
		Logger:   s.settings.Logger,
		Retry:    single,
	})
	s.Require().NoError(err)

	checkoutErr := make(chan error, 1)
	go func() {
		_, checkErr := orderSvc.Checkout(ctx, user.ID)
		checkoutErr <- checkErr
	}()

	select {
	case <-debited:
	case <-time.After(time.Second):
		s.FailNow("checkout did not reach balance debit")
	}
	_, clearErr := cartSvc.Clear(ctx, user.ID)
	s.Require().NoError(clearErr)
	s.Require().ErrorIs(<-checkoutErr, domain.ErrDeadlock)

	orders, err := s.services.OrderService.GetByUserID(ctx, user.ID)
	s.Require().NoError(err)
	s.Empty(orders)

	view := s.requireTotalConsistent(ctx, user.ID)
	s.Empty(view.Lines)
	s.Equal(int32(10), s.stock(movie.ID))
	s.True(dec("100").Equal(s.balance(user.ID)))
	s.Zero(s.store.HeldLocks())
}

// assertSettledState у юзера ровно одна корзина, и она пуста. Корзина заказа удалена, позиции заказа на месте.
func (s *OrderServiceTestSuite) TestSales() {
	ctx := s.T().Context()
	movie := s.newMovie("10", 10)
	buyer := func(name, nationality string) *domain.User {
		user, err := s.users().CreateUser(ctx, repoargs.CreateUser{
			Name:         name,
			PasswordHash: "hash",
			Nationality:  nationality,
			Balance:      dec("100"),
		})
		s.Require().NoError(err)
		_, err = s.carts().Create(ctx, user.ID)
		s.Require().NoError(err)
		_, err = s.services.CartService.AddItem(ctx, user.ID, movie.ID, 1)
		s.Require().NoError(err)
		return user
	}
	first := buyer("ana", "Spain")
	second := buyer("luis", "Spain")
	buyer("marie", "France")

	for _, user := range []*domain.User{first, second} {
		_, err := s.services.OrderService.PlaceOrder(ctx, user.ID)
		s.Require().NoError(err)
	}

	year := int32(time.Now().UTC().Year()) //nolint:gosec
	sales, err := s.services.OrderService.Sales(ctx, year, " Spain ")
	s.Require().NoError(err)
	s.Require().Len(sales, 2)
	s.Equal("ana", sales[0].UserName)
	s.Equal("luis", sales[1].UserName)
	s.True(dec("10").Equal(sales[0].Total))
	s.False(sales[0].Paid)

	sales, err = s.services.OrderService.Sales(ctx, year-1, "Spain")
	s.Require().NoError(err)
	s.Empty(sales)

	sales, err = s.services.OrderService.Sales(ctx, year, "France")
	s.Require().NoError(err)
	s.Empty(sales, "placed only by Spanish buyers")

	_, err = s.services.OrderService.Sales(ctx, 0, "Spain")
	s.Require().ErrorIs(err, domain.ErrInvalidFilter)
	_, err = s.services.OrderService.Sales(ctx, year, "  ")
	s.Require().ErrorIs(err, domain.ErrInvalidFilter)
}

func (s *OrderServiceTestSuite) assertSettledState(userID uuid.UUID, movieID, orderID int64) {
	ctx := s.T().Context()

	_, err := s.carts().FindByID(ctx, orderID)
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)

	view := s.requireTotalConsistent(ctx, userID)
	s.NotEqual(orderID, view.Cart.ID)
	s.Empty(view.Lines)
	s.True(view.Cart.Total.IsZero())

	lines, err := s.items().ListLines(ctx, orderID)
	s.Require().NoError(err)
	s.Empty(lines)

	items, err := s.orders().ListItems(ctx, orderID)
	s.Require().NoError(err)
	s.Len(items, 1)
	s.Equal(movieID, items[0].MovieID)

	stored, err := s.orders().FindByID(ctx, orderID)
	s.Require().NoError(err)
	s.True(stored.Paid)
}
