package service

import (
	"context"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/memrepo"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/internal/service/psswd"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// storeSuite общая основа для тестов сервисов поверх хранилища в памяти.
type storeSuite struct {
	suite.Suite
	store    *memrepo.Store
	settings Settings
	services *AppServices
}

func (s *storeSuite) SetupTest() {
	s.setup(Settings{})
}

func (s *storeSuite) setup(settings Settings) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	settings.Logger = logger
	settings.Hasher = psswd.Hasher{Cost: bcrypt.MinCost}
	settings.JWTSecret = []byte("secret")

	s.store = memrepo.NewStore()
	s.settings = settings

	services, err := Factory(s.store, settings)
	s.Require().NoError(err)
	s.services = services
}

// newUser создает юзера с балансом и скидкой и его корзину.
func (s *storeSuite) newUser(balance, discount string) *domain.User {
	ctx := s.T().Context()
	user, err := s.users().CreateUser(ctx, repoargs.CreateUser{
		Name:         gofakeit.Username() + gofakeit.DigitN(6),
		PasswordHash: "hash",
		Nationality:  gofakeit.Country(),
		Discount:     decimal.RequireFromString(discount),
		Balance:      decimal.RequireFromString(balance),
	})
	s.Require().NoError(err)
	_, err = s.carts().Create(ctx, user.ID)
	s.Require().NoError(err)
	return user
}

func (s *storeSuite) newMovie(price string, stock int32) *domain.Movie {
	movie, err := s.services.MovieService.Create(s.T().Context(), repoargs.CreateMovie{
		Title:       gofakeit.MovieName(),
		Description: gofakeit.Sentence(8),
		Year:        int32(gofakeit.Year()), //nolint:gosec
		Genre:       gofakeit.MovieGenre(),
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
	})
	s.Require().NoError(err)
	return movie
}

func (s *storeSuite) repo(name repoargs.RepositoryName) uow.Repository {
	repo, err := s.store.GetRepository(uow.RepositoryName(name))
	s.Require().NoError(err)
	return repo
}

func (s *storeSuite) users() UserRepository {
	return s.repo(repoargs.UserRepoName).(UserRepository) //nolint:errcheck
}

func (s *storeSuite) movies() MovieRepository {
	return s.repo(repoargs.MovieRepoName).(MovieRepository) //nolint:errcheck
}

func (s *storeSuite) carts() CartRepository {
	return s.repo(repoargs.CartRepoName).(CartRepository) //nolint:errcheck
}

func (s *storeSuite) items() CartItemRepository {
	return s.repo(repoargs.CartItemRepoName).(CartItemRepository) //nolint:errcheck
}

func (s *storeSuite) orders() OrderRepository {
	return s.repo(repoargs.OrderRepoName).(OrderRepository) //nolint:errcheck
}

func (s *storeSuite) stock(movieID int64) int32 {
	movie, err := s.movies().FindByID(s.T().Context(), movieID)
	s.Require().NoError(err)
	return movie.Stock
}

func (s *storeSuite) balance(userID uuid.UUID) decimal.Decimal {
	user, err := s.users().FindByID(s.T().Context(), userID)
	s.Require().NoError(err)
	return user.Balance
}

// requireTotalConsistent итог корзины совпадает с суммой по ее позициям.
func (s *storeSuite) requireTotalConsistent(ctx context.Context, userID uuid.UUID) *CartView {
	view, err := s.services.CartService.Get(ctx, userID)
	s.Require().NoError(err)
	s.Require().True(sumLines(view.Lines).Equal(view.Cart.Total),
		"cart total %s, lines sum %s", view.Cart.Total, sumLines(view.Lines))
	return view
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
