package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/internal/service/psswd"
	"github.com/fsdevblog/moviestore/internal/service/tokens"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const JWTTokenExpire = 1 * time.Hour

var ErrEmptyJWTSecret = errors.New("empty jwt secret")

type UserService struct {
	runner         *txRunner
	userRepo       UserRepository
	psswd          PasswordHasher
	jwtTokenSecret []byte
}

func NewUserService(u uow.UOW, settings Settings) (*UserService, error) {
	if len(settings.JWTSecret) == 0 {
		return nil, ErrEmptyJWTSecret
	}
	userRepo, err := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	hasher := settings.Hasher
	if hasher == nil {
		hasher = psswd.Hasher{}
	}
	return &UserService{
		runner:         newTxRunner(u, settings, "user"),
		userRepo:       userRepo,
		psswd:          hasher,
		jwtTokenSecret: settings.JWTSecret,
	}, nil
}

type RegisterUserArgs struct {
	Username    string
	Password    string
	Nationality string
}

// Register создает юзера и его первую пустую корзину в одной транзакции, затем генерирует jwt token.
// Возвращает 3 значения: созданный юзер, токен и ошибку. Занятое имя - domain.ErrDuplicateKey.
func (s *UserService) Register(ctx context.Context, args RegisterUserArgs) (*domain.User, string, error) {
	password, hashErr := s.psswd.HashPassword(args.Password)
	if hashErr != nil {
		return nil, "", fmt.Errorf("registering user: %s", hashErr.Error())
	}
	var user *domain.User
	txErr := s.runner.run(ctx, "register", func(c context.Context, tx uow.TX) error {
		r, err := reposOf(tx)
		if err != nil {
			return err
		}
		user, err = r.users.CreateUser(c, repoargs.CreateUser{
			Name:         args.Username,
			PasswordHash: password,
			Nationality:  args.Nationality,
			Discount:     decimal.Zero,
			Balance:      decimal.Zero,
		})
		if err != nil {
			return err //nolint:wrapcheck
		}
		_, err = r.carts.Create(c, user.ID)
		return err //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, "", fmt.Errorf("registering user: %w", txErr)
	}

	token, tokenErr := tokens.GenerateUserJWT(user.ID, JWTTokenExpire, s.jwtTokenSecret)
	if tokenErr != nil {
		return nil, "", fmt.Errorf("registering user: %w", tokenErr)
	}
	return user, token, nil
}

type LoginUserArgs struct {
	Username string
	Password string
}

// Login проверяет имя и пароль и возвращает юзера с новым токеном. Ошибки: domain.ErrRecordNotFound,
// domain.ErrPasswordMissMatch.
func (s *UserService) Login(ctx context.Context, args LoginUserArgs) (*domain.User, string, error) {
	user, err := s.userRepo.FindByName(ctx, args.Username)
	if err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}
	if !s.psswd.ComparePassword(args.Password, user.PasswordHash) {
		return nil, "", fmt.Errorf("login: %w", domain.ErrPasswordMissMatch)
	}
	token, tokenErr := tokens.GenerateUserJWT(user.ID, JWTTokenExpire, s.jwtTokenSecret)
	if tokenErr != nil {
		return nil, "", fmt.Errorf("login: %w", tokenErr)
	}
	return user, token, nil
}

// Credit пополняет баланс юзера на amount и возвращает новый баланс.
func (s *UserService) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("crediting balance: %w", domain.ErrInvalidAmount)
	}
	var balance decimal.Decimal
	err := s.runner.run(ctx, "credit", func(c context.Context, tx uow.TX) error {
		r, err := reposOf(tx)
		if err != nil {
			return err
		}
		user, err := r.users.LockByID(c, userID)
		if err != nil {
			return err //nolint:wrapcheck
		}
		if !user.Active {
			return domain.ErrUserInactive
		}
		balance, err = r.users.AddBalance(c, userID, amount)
		return err //nolint:wrapcheck
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("crediting balance: %w", err)
	}
	return balance, nil
}

func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return user, nil
}
