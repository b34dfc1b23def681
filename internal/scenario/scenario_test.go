package scenario

import (
	"testing"
	"time"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/memrepo"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/internal/service"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type ScenarioTestSuite struct {
	suite.Suite
	store *memrepo.Store
}

func TestScenarioSuite(t *testing.T) {
	suite.Run(t, new(ScenarioTestSuite))
}

func (s *ScenarioTestSuite) SetupTest() {
	s.store = memrepo.NewStore()
}

func (s *ScenarioTestSuite) newScenario(ordering domain.LockOrdering) *Scenario {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return New(s.store, service.Settings{
		Ordering: ordering,
		Logger:   logger,
		Retry:    service.RetryPolicy{InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
	}).SetRendezvousTimeout(300 * time.Millisecond)
}

func (s *ScenarioTestSuite) prepare(sc *Scenario) *Fixture {
	fx, err := sc.Prepare(s.T().Context(), PrepareArgs{
		Balance:  decimal.NewFromInt(100),
		Price:    decimal.NewFromInt(10),
		Stock:    10,
		Quantity: 2,
	})
	s.Require().NoError(err)
	return fx
}

// TestCrossedOrderingDeadlocks ровно одна транзакция становится жертвой, после ее повтора состояние такое же,
// как при последовательном выполнении.
func (s *ScenarioTestSuite) TestCrossedOrderingDeadlocks() {
	sc := s.newScenario(domain.LockOrderingCrossed)
	fx := s.prepare(sc)

	report, err := sc.RunCrossed(s.T().Context(), *fx)
	s.Require().NoError(err)
	s.Require().True(report.Deadlocked())
	s.NotEqual(report.Settle.deadlocked(), report.Clear.deadlocked(), "exactly one victim")
	s.Require().NoError(report.RetryErr)
	s.Require().NotNil(report.Settlement)
	s.True(report.Settlement.Settled)

	s.assertTerminalState(fx)
}

func (s *ScenarioTestSuite) TestStrictOrderingNoDeadlock() {
	sc := s.newScenario(domain.LockOrderingStrict)
	fx := s.prepare(sc)

	report, err := sc.RunCrossed(s.T().Context(), *fx)
	s.Require().NoError(err)
	s.False(report.Deadlocked())
	s.Require().NoError(report.Settle.Err)
	s.Require().NoError(report.Clear.Err)
	s.Require().NotNil(report.Settlement)
	s.True(report.Settlement.Settled)

	s.assertTerminalState(fx)
}

// assertTerminalState заказ оплачен один раз, у юзера одна пустая корзина, остаток не вернулся.
func (s *ScenarioTestSuite) assertTerminalState(fx *Fixture) {
	ctx := s.T().Context()
	s.Zero(s.store.HeldLocks())

	orders := s.repo(repoargs.OrderRepoName).(service.OrderRepository) //nolint:errcheck
	order, err := orders.FindByID(ctx, fx.OrderID)
	s.Require().NoError(err)
	s.True(order.Paid)
	items, err := orders.ListItems(ctx, fx.OrderID)
	s.Require().NoError(err)
	s.Len(items, 1)

	users := s.repo(repoargs.UserRepoName).(service.UserRepository) //nolint:errcheck
	user, err := users.FindByID(ctx, fx.UserID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(80).Equal(user.Balance), "balance %s", user.Balance)

	carts := s.repo(repoargs.CartRepoName).(service.CartRepository) //nolint:errcheck
	_, err = carts.FindByID(ctx, fx.OrderID)
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
	cart, err := carts.FindByUserID(ctx, fx.UserID)
	s.Require().NoError(err)
	s.True(cart.Total.IsZero())

	lines, err := s.repo(repoargs.CartItemRepoName).(service.CartItemRepository).ListLines(ctx, cart.ID) //nolint:errcheck
	s.Require().NoError(err)
	s.Empty(lines)

	movie, err := s.repo(repoargs.MovieRepoName).(service.MovieRepository).FindByID(ctx, fx.MovieID) //nolint:errcheck
	s.Require().NoError(err)
	s.Equal(int32(8), movie.Stock)
}

func (s *ScenarioTestSuite) repo(name repoargs.RepositoryName) uow.Repository {
	repo, err := s.store.GetRepository(uow.RepositoryName(name))
	s.Require().NoError(err)
	return repo
}
