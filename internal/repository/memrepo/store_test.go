package memrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	store *Store
	user  *domain.User
	movie *domain.Movie
	cart  *domain.Cart
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupTest() {
	s.store = NewStore()
	ctx := s.T().Context()

	users := s.userRepo(nil)
	user, err := users.CreateUser(ctx, repoargs.CreateUser{
		Name:    gofakeit.Username(),
		Balance: decimal.NewFromInt(100),
	})
	s.Require().NoError(err)
	s.user = user

	movie, movieErr := s.movieRepo(nil).Create(ctx, repoargs.CreateMovie{
		Title: gofakeit.MovieName(),
		Price: decimal.RequireFromString("9.99"),
		Stock: 5,
	})
	s.Require().NoError(movieErr)
	s.movie = movie

	cart, cartErr := s.cartRepo(nil).Create(ctx, user.ID)
	s.Require().NoError(cartErr)
	s.cart = cart
}

func (s *StoreTestSuite) TestRollbackRestoresState() {
	ctx := s.T().Context()
	errBoom := errors.New("boom")

	err := s.store.Do(ctx, func(c context.Context, tx uow.TX) error {
		users, _ := uow.GetAs[*UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		items, _ := uow.GetAs[*CartItemRepository](tx, uow.RepositoryName(repoargs.CartItemRepoName))
		carts, _ := uow.GetAs[*CartRepository](tx, uow.RepositoryName(repoargs.CartRepoName))

		if _, balanceErr := users.AddBalance(c, s.user.ID, decimal.NewFromInt(-40)); balanceErr != nil {
			return balanceErr
		}
		if insertErr := items.Insert(c, domain.CartItem{CartID: s.cart.ID, MovieID: s.movie.ID, Quantity: 2}); insertErr != nil {
			return insertErr
		}
		if deleteErr := carts.Delete(c, s.cart.ID); deleteErr != nil {
			return deleteErr
		}
		return errBoom
	})
	s.Require().ErrorIs(err, errBoom)

	user, userErr := s.userRepo(nil).FindByID(ctx, s.user.ID)
	s.Require().NoError(userErr)
	s.True(decimal.NewFromInt(100).Equal(user.Balance))

	_, cartErr := s.cartRepo(nil).FindByID(ctx, s.cart.ID)
	s.Require().NoError(cartErr)

	lines, linesErr := s.itemRepo(nil).ListLines(ctx, s.cart.ID)
	s.Require().NoError(linesErr)
	s.Empty(lines)
	s.Zero(s.store.HeldLocks())
}

func (s *StoreTestSuite) TestPanicRollsBack() {
	ctx := s.T().Context()

	s.Panics(func() {
		_ = s.store.Do(ctx, func(c context.Context, tx uow.TX) error {
			movies, _ := uow.GetAs[*MovieRepository](tx, uow.RepositoryName(repoargs.MovieRepoName))
			_, _ = movies.AdjustStock(c, s.movie.ID, -5)
			panic("boom")
		})
	})

	movie, err := s.movieRepo(nil).FindByID(ctx, s.movie.ID)
	s.Require().NoError(err)
	s.Equal(int32(5), movie.Stock)
	s.Zero(s.store.HeldLocks())
}

func (s *StoreTestSuite) TestConstraints() {
	ctx := s.T().Context()

	_, dupUserErr := s.userRepo(nil).CreateUser(ctx, repoargs.CreateUser{Name: s.user.Name})
	s.Require().ErrorIs(dupUserErr, domain.ErrDuplicateKey)

	_, dupCartErr := s.cartRepo(nil).Create(ctx, s.user.ID)
	s.Require().ErrorIs(dupCartErr, domain.ErrDuplicateKey)

	fkErr := s.itemRepo(nil).Insert(ctx, domain.CartItem{CartID: s.cart.ID, MovieID: 404, Quantity: 1})
	s.Require().ErrorIs(fkErr, domain.ErrForeignKey)

	s.Require().NoError(s.itemRepo(nil).Insert(ctx, domain.CartItem{CartID: s.cart.ID, MovieID: s.movie.ID, Quantity: 1}))
	dupItemErr := s.itemRepo(nil).Insert(ctx, domain.CartItem{CartID: s.cart.ID, MovieID: s.movie.ID, Quantity: 1})
	s.Require().ErrorIs(dupItemErr, domain.ErrDuplicateKey)

	_, notFoundErr := s.orderRepo(nil).MarkPaid(ctx, 404)
	s.Require().ErrorIs(notFoundErr, domain.ErrRecordNotFound)
}

func (s *StoreTestSuite) TestMarkPaidOnlyOnce() {
	ctx := s.T().Context()
	orders := s.orderRepo(nil)

	_, err := orders.Create(ctx, repoargs.CreateOrder{ID: s.cart.ID, UserID: s.user.ID, Total: decimal.NewFromInt(10)})
	s.Require().NoError(err)

	paid, paidErr := orders.MarkPaid(ctx, s.cart.ID)
	s.Require().NoError(paidErr)
	s.True(paid.Paid)

	_, againErr := orders.MarkPaid(ctx, s.cart.ID)
	s.Require().ErrorIs(againErr, domain.ErrRecordNotFound)
}

func (s *StoreTestSuite) TestUncommittedWritesInvisible() {
	ctx := s.T().Context()
	written := make(chan struct{})
	proceed := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.store.Do(ctx, func(c context.Context, tx uow.TX) error {
			orders := s.orderRepo(tx)
			if _, err := orders.Create(c, repoargs.CreateOrder{
				ID:     s.cart.ID,
				UserID: s.user.ID,
				Total:  decimal.NewFromInt(10),
			}); err != nil {
				return err
			}
			if _, err := s.movieRepo(tx).AdjustStock(c, s.movie.ID, -2); err != nil {
				return err
			}
			item := domain.CartItem{CartID: s.cart.ID, MovieID: s.movie.ID, Quantity: 2}
			if err := s.itemRepo(tx).Insert(c, item); err != nil {
				return err
			}
			if exists, _ := orders.Exists(c, s.cart.ID); !exists {
				return errors.New("own order is not visible")
			}
			close(written)
			<-proceed
			return nil
		})
	}()
	<-written

	exists, err := s.orderRepo(nil).Exists(ctx, s.cart.ID)
	s.Require().NoError(err)
	s.False(exists)
	_, findErr := s.orderRepo(nil).FindByID(ctx, s.cart.ID)
	s.Require().ErrorIs(findErr, domain.ErrRecordNotFound)

	movie, err := s.movieRepo(nil).FindByID(ctx, s.movie.ID)
	s.Require().NoError(err)
	s.Equal(int32(5), movie.Stock)

	lines, err := s.itemRepo(nil).ListLines(ctx, s.cart.ID)
	s.Require().NoError(err)
	s.Empty(lines)

	close(proceed)
	s.Require().NoError(<-done)

	exists, err = s.orderRepo(nil).Exists(ctx, s.cart.ID)
	s.Require().NoError(err)
	s.True(exists)
	movie, err = s.movieRepo(nil).FindByID(ctx, s.movie.ID)
	s.Require().NoError(err)
	s.Equal(int32(3), movie.Stock)
	lines, err = s.itemRepo(nil).ListLines(ctx, s.cart.ID)
	s.Require().NoError(err)
	s.Len(lines, 1)
}

func (s *StoreTestSuite) TestUncommittedDeleteStillVisible() {
	ctx := s.T().Context()
	s.Require().NoError(s.itemRepo(nil).Insert(ctx, domain.CartItem{CartID: s.cart.ID, MovieID: s.movie.ID, Quantity: 1}))

	errBoom := errors.New("boom")
	deleted := make(chan struct{})
	proceed := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.store.Do(ctx, func(c context.Context, tx uow.TX) error {
			if err := s.cartRepo(tx).Delete(c, s.cart.ID); err != nil {
				return err
			}
			close(deleted)
			<-proceed
			return errBoom
		})
	}()
	<-deleted

	cart, err := s.cartRepo(nil).FindByUserID(ctx, s.user.ID)
	s.Require().NoError(err)
	s.Equal(s.cart.ID, cart.ID)
	ids, err := s.cartRepo(nil).ListIDs(ctx, 0, 10)
	s.Require().NoError(err)
	s.Equal([]int64{s.cart.ID}, ids)
	lines, err := s.itemRepo(nil).ListLines(ctx, s.cart.ID)
	s.Require().NoError(err)
	s.Len(lines, 1)

	close(proceed)
	s.Require().ErrorIs(<-done, errBoom)

	_, err = s.cartRepo(nil).FindByID(ctx, s.cart.ID)
	s.Require().NoError(err)
	s.Zero(s.store.HeldLocks())
}

func (s *StoreTestSuite) TestCrossedLocksAbortOneTransaction() {
	ctx := s.T().Context()

	userLocked := make(chan struct{})
	itemsLocked := make(chan struct{})
	results := make(chan error, 2)

	go func() {
		results <- s.store.Do(ctx, func(c context.Context, tx uow.TX) error {
			users, _ := uow.GetAs[*UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
			items, _ := uow.GetAs[*CartItemRepository](tx, uow.RepositoryName(repoargs.CartItemRepoName))
			if _, err := users.LockByID(c, s.user.ID); err != nil {
				return err
			}
			close(userLocked)
			<-itemsLocked
			_, err := items.DeleteByCartID(c, s.cart.ID)
			return err
		})
	}()

	go func() {
		results <- s.store.Do(ctx, func(c context.Context, tx uow.TX) error {
			users, _ := uow.GetAs[*UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
			items, _ := uow.GetAs[*CartItemRepository](tx, uow.RepositoryName(repoargs.CartItemRepoName))
			if _, err := items.DeleteByCartID(c, s.cart.ID); err != nil {
				return err
			}
			close(itemsLocked)
			<-userLocked
			_, err := users.LockByID(c, s.user.ID)
			return err
		})
	}()

	var deadlocks, successes int
	for range 2 {
		if err := <-results; err != nil {
			s.Require().ErrorIs(err, domain.ErrDeadlock)
			deadlocks++
		} else {
			successes++
		}
	}
	s.Equal(1, deadlocks)
	s.Equal(1, successes)
	s.Zero(s.store.HeldLocks())
}

func (s *StoreTestSuite) TestCatalogueChangesRollBack() {
	ctx := s.T().Context()
	errBoom := errors.New("boom")
	title := "Renamed"

	err := s.store.Do(ctx, func(c context.Context, tx uow.TX) error {
		movies := s.movieRepo(tx)
		if err := movies.AttachActors(c, s.movie.ID, []string{"Toshiro Mifune"}); err != nil {
			return err
		}
		if _, err := movies.Update(c, s.movie.ID, repoargs.UpdateMovie{Title: &title}); err != nil {
			return err
		}
		found, err := movies.Search(c, repoargs.MovieFilter{Actor: "mifune", Limit: 10})
		if err != nil {
			return err
		}
		if len(found) != 1 {
			return errors.New("own actors are not visible")
		}
		return errBoom
	})
	s.Require().ErrorIs(err, errBoom)

	movie, err := s.movieRepo(nil).FindByID(ctx, s.movie.ID)
	s.Require().NoError(err)
	s.Equal(s.movie.Title, movie.Title)
	found, err := s.movieRepo(nil).Search(ctx, repoargs.MovieFilter{Actor: "mifune", Limit: 10})
	s.Require().NoError(err)
	s.Empty(found)

	s.Require().NoError(s.movieRepo(nil).AttachActors(ctx, s.movie.ID, []string{"Toshiro Mifune"}))
	s.Require().NoError(s.movieRepo(nil).AttachActors(ctx, s.movie.ID, []string{"Toshiro Mifune"}))
	found, err = s.movieRepo(nil).Search(ctx, repoargs.MovieFilter{Actors: []string{"Toshiro Mifune"}, Limit: 10})
	s.Require().NoError(err)
	s.Len(found, 1)

	s.Require().NoError(s.movieRepo(nil).Withdraw(ctx, s.movie.ID))
	found, err = s.movieRepo(nil).Search(ctx, repoargs.MovieFilter{Actors: []string{"Toshiro Mifune"}, Limit: 10})
	s.Require().NoError(err)
	s.Empty(found)
	s.Require().ErrorIs(s.movieRepo(nil).AttachActors(ctx, 404, []string{"Nobody"}), domain.ErrForeignKey)
}

func (s *StoreTestSuite) TestListSales() {
	ctx := s.T().Context()
	users := s.userRepo(nil)
	spanish, err := users.CreateUser(ctx, repoargs.CreateUser{Name: "ana", Nationality: "Spain"})
	s.Require().NoError(err)
	french, err := users.CreateUser(ctx, repoargs.CreateUser{Name: "marie", Nationality: "France"})
	s.Require().NoError(err)

	orders := s.orderRepo(nil)
	create := func(id int64, userID uuid.UUID, date time.Time) {
		_, createErr := orders.Create(ctx, repoargs.CreateOrder{ID: id, UserID: userID, Total: decimal.NewFromInt(id), Date: date})
		s.Require().NoError(createErr)
	}
	create(101, spanish.ID, time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC))
	create(102, spanish.ID, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	create(103, spanish.ID, time.Date(2025, 1, 1, 0, 30, 0, 0, time.UTC))
	create(104, french.ID, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	sales, err := orders.ListSales(ctx, 2024, "Spain")
	s.Require().NoError(err)
	s.Require().Len(sales, 2)
	s.Equal(int64(102), sales[0].OrderID)
	s.Equal(int64(101), sales[1].OrderID)
	s.Equal("ana", sales[0].UserName)

	sales, err = orders.ListSales(ctx, 2024, "Portugal")
	s.Require().NoError(err)
	s.Empty(sales)
}

func (s *StoreTestSuite) userRepo(tx uow.TX) *UserRepository {
	return s.repo(tx, repoargs.UserRepoName).(*UserRepository) //nolint:errcheck
}

func (s *StoreTestSuite) movieRepo(tx uow.TX) *MovieRepository {
	return s.repo(tx, repoargs.MovieRepoName).(*MovieRepository) //nolint:errcheck
}

func (s *StoreTestSuite) cartRepo(tx uow.TX) *CartRepository {
	return s.repo(tx, repoargs.CartRepoName).(*CartRepository) //nolint:errcheck
}

func (s *StoreTestSuite) itemRepo(tx uow.TX) *CartItemRepository {
	return s.repo(tx, repoargs.CartItemRepoName).(*CartItemRepository) //nolint:errcheck
}

func (s *StoreTestSuite) orderRepo(tx uow.TX) *OrderRepository {
	return s.repo(tx, repoargs.OrderRepoName).(*OrderRepository) //nolint:errcheck
}

func (s *StoreTestSuite) repo(tx uow.TX, name repoargs.RepositoryName) uow.Repository {
	var (
		repo uow.Repository
		err  error
	)
	if tx == nil {
		repo, err = s.store.GetRepository(uow.RepositoryName(name))
	} else {
		repo, err = tx.Get(uow.RepositoryName(name))
	}
	s.Require().NoError(err)
	return repo
}
