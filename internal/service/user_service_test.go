package service

import (
	"context"
	"testing"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/internal/service/mocks"
	"github.com/fsdevblog/moviestore/internal/service/tokens"
	"github.com/fsdevblog/moviestore/pkg/uow"
	uowmocks "github.com/fsdevblog/moviestore/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type UserServiceTestSuite struct {
	suite.Suite
	mockUOW      *uowmocks.MockUOW
	mockTX       *uowmocks.MockTX
	mockUserRepo *mocks.MockUserRepository
	mockCartRepo *mocks.MockCartRepository
	mockPsswd    *mocks.MockPasswordHasher
	jwtSecret    []byte
	userService  *UserService
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

func (s *UserServiceTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(mockCtrl)
	s.mockTX = uowmocks.NewMockTX(mockCtrl)
	s.mockUserRepo = mocks.NewMockUserRepository(mockCtrl)
	s.mockCartRepo = mocks.NewMockCartRepository(mockCtrl)
	s.mockPsswd = mocks.NewMockPasswordHasher(mockCtrl)

	s.jwtSecret = []byte("secret")

	// Мок получения репозитория из uow. Выполняется в инициализации сервиса.
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.UserRepoName)).
		Return(s.mockUserRepo, nil).AnyTimes()

	// Транзакция отдает все репозитории, сервис пользуется только юзерами и корзинами.
	txRepos := map[repoargs.RepositoryName]uow.Repository{
		repoargs.UserRepoName:     s.mockUserRepo,
		repoargs.MovieRepoName:    mocks.NewMockMovieRepository(mockCtrl),
		repoargs.CartRepoName:     s.mockCartRepo,
		repoargs.CartItemRepoName: mocks.NewMockCartItemRepository(mockCtrl),
		repoargs.OrderRepoName:    mocks.NewMockOrderRepository(mockCtrl),
		repoargs.RatingRepoName:   mocks.NewMockRatingRepository(mockCtrl),
	}
	for name, repo := range txRepos {
		s.mockTX.EXPECT().Get(uow.RepositoryName(name)).Return(repo, nil).AnyTimes()
	}

	// Мок uow.
	s.mockUOW.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		}).AnyTimes()

	userService, servErr := NewUserService(s.mockUOW, Settings{JWTSecret: s.jwtSecret, Hasher: s.mockPsswd})
	s.Require().NoError(servErr)
	s.userService = userService
}

func (s *UserServiceTestSuite) TestNewUserServiceRequiresSecret() {
	_, err := NewUserService(s.mockUOW, Settings{})
	s.Require().ErrorIs(err, ErrEmptyJWTSecret)
}

func (s *UserServiceTestSuite) TestLogin() {
	savedUserUsername := "test"
	argsOk := LoginUserArgs{Username: savedUserUsername, Password: "<PASSWORD>"}
	argsWrongUsername := LoginUserArgs{Username: "wrong", Password: "<PASSWORD>"}
	argsWrongPass := LoginUserArgs{Username: savedUserUsername, Password: "wrong pass"}

	validHashPassword := "hash ok"
	savedUser := domain.User{
		ID:           uuid.New(),
		Name:         savedUserUsername,
		PasswordHash: validHashPassword,
		Active:       true,
	}

	// Мок для сравнения пароля.
	s.mockPsswd.EXPECT().ComparePassword(argsOk.Password, validHashPassword).Return(true)
	s.mockPsswd.EXPECT().ComparePassword(argsWrongPass.Password, validHashPassword).Return(false)

	// Мок репозитория.
	s.mockUserRepo.EXPECT().
		FindByName(gomock.Any(), savedUserUsername).
		Return(&savedUser, nil).Times(2)
	s.mockUserRepo.EXPECT().
		FindByName(gomock.Any(), argsWrongUsername.Username).
		Return(nil, domain.ErrRecordNotFound)

	cases := []struct {
		name    string
		args    LoginUserArgs
		wantErr error
	}{
		{name: "ok", args: argsOk},
		{name: "wrong username", args: argsWrongUsername, wantErr: domain.ErrRecordNotFound},
		{name: "wrong password", args: argsWrongPass, wantErr: domain.ErrPasswordMissMatch},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			user, tokenStr, err := s.userService.Login(s.T().Context(), t.args)
			s.Require().ErrorIs(err, t.wantErr)

			if t.wantErr == nil {
				s.Equal(savedUser.ID, user.ID)
				userID, tokenErr := tokens.ValidateUserJWT(tokenStr, s.jwtSecret)
				s.Require().NoError(tokenErr)
				s.Equal(savedUser.ID, userID)
			}
		})
	}
}

func (s *UserServiceTestSuite) TestRegister() {
	argsOk := RegisterUserArgs{Username: "validUser", Password: "<PASSWORD>", Nationality: "Spain"}
	argsDuplicateUsername := RegisterUserArgs{Username: "duplicateUser", Password: "<PASSWORD>"}

	validHashedPassword := "hashedPassword"
	createdUser := domain.User{
		ID:           uuid.New(),
		Name:         argsOk.Username,
		PasswordHash: validHashedPassword,
		Nationality:  argsOk.Nationality,
		Active:       true,
	}

	// Мок хеширования пароля.
	s.mockPsswd.EXPECT().HashPassword(argsOk.Password).Return(validHashedPassword, nil).Times(2)

	// Мок репозиториев.
	s.mockUserRepo.EXPECT().
		CreateUser(gomock.Any(), gomock.Eq(repoargs.CreateUser{
			Name:         argsOk.Username,
			PasswordHash: validHashedPassword,
			Nationality:  argsOk.Nationality,
			Discount:     decimal.Zero,
			Balance:      decimal.Zero,
		})).
		Return(&createdUser, nil)
	s.mockUserRepo.EXPECT().
		CreateUser(gomock.Any(), gomock.Eq(repoargs.CreateUser{
			Name:         argsDuplicateUsername.Username,
			PasswordHash: validHashedPassword,
			Discount:     decimal.Zero,
			Balance:      decimal.Zero,
		})).
		Return(nil, domain.ErrDuplicateKey)

	// Первая корзина создается в той же транзакции.
	s.mockCartRepo.EXPECT().Create(gomock.Any(), createdUser.ID).
		Return(&domain.Cart{ID: 1, UserID: createdUser.ID}, nil)

	cases := []struct {
		name      string
		args      RegisterUserArgs
		wantErr   error
		wantUser  *domain.User
		wantToken bool
	}{
		{name: "ok", args: argsOk, wantUser: &createdUser, wantToken: true},
		{name: "duplicate username", args: argsDuplicateUsername, wantErr: domain.ErrDuplicateKey},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			user, tokenStr, err := s.userService.Register(s.T().Context(), t.args)

			s.Require().ErrorIs(err, t.wantErr)
			s.Equal(t.wantUser, user)

			if t.wantToken {
				userID, tokenErr := tokens.ValidateUserJWT(tokenStr, s.jwtSecret)
				s.Require().NoError(tokenErr)
				s.Equal(user.ID, userID)
			} else {
				s.Empty(tokenStr)
			}
		})
	}
}

func (s *UserServiceTestSuite) TestCredit() {
	active := domain.User{ID: uuid.New(), Active: true}
	inactive := domain.User{ID: uuid.New()}

	s.mockUserRepo.EXPECT().LockByID(gomock.Any(), active.ID).Return(&active, nil)
	s.mockUserRepo.EXPECT().LockByID(gomock.Any(), inactive.ID).Return(&inactive, nil)
	s.mockUserRepo.EXPECT().AddBalance(gomock.Any(), active.ID, decimal.RequireFromString("15.5")).
		Return(decimal.RequireFromString("115.5"), nil)

	cases := []struct {
		name        string
		userID      uuid.UUID
		amount      string
		wantErr     error
		wantBalance string
	}{
		{name: "ok", userID: active.ID, amount: "15.5", wantBalance: "115.5"},
		{name: "zero amount", userID: active.ID, amount: "0", wantErr: domain.ErrInvalidAmount},
		{name: "negative amount", userID: active.ID, amount: "-1", wantErr: domain.ErrInvalidAmount},
		{name: "inactive user", userID: inactive.ID, amount: "1", wantErr: domain.ErrUserInactive},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			balance, err := s.userService.Credit(s.T().Context(), t.userID, decimal.RequireFromString(t.amount))
			s.Require().ErrorIs(err, t.wantErr)
			if t.wantErr == nil {
				s.True(decimal.RequireFromString(t.wantBalance).Equal(balance))
			}
		})
	}
}
