package pgrepo

import (
	"context"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const userColumns = `id, name, password_hash, COALESCE(token, ''), nationality, discount, balance, admin, active`

type UserRepository struct {
	db uow.DBTX
}

func NewUserRepository(db uow.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser создает юзера в базе данных. В случае конфликта имени возвращает ошибку domain.ErrDuplicateKey,
// во всех других случаях - domain.ErrUnknown.
func (u *UserRepository) CreateUser(ctx context.Context, user repoargs.CreateUser) (*domain.User, error) {
	row := u.db.QueryRow(ctx, `
		INSERT INTO "User" (id, name, password_hash, nationality, discount, balance, admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		uuid.New(), user.Name, user.PasswordHash, user.Nationality, user.Discount, user.Balance, user.Admin,
	)
	dbUser, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "creating user")
	}
	return dbUser, nil
}

func (u *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	dbUser, err := scanUser(u.db.QueryRow(ctx, `SELECT `+userColumns+` FROM "User" WHERE id = $1`, id))
	if err != nil {
		return nil, convertErr(err, "finding user by id %s", id)
	}
	return dbUser, nil
}

// FindByName ищет юзера по имени. Возвращает ошибку domain.ErrRecordNotFound если запись не найдена.
func (u *UserRepository) FindByName(ctx context.Context, name string) (*domain.User, error) {
	dbUser, err := scanUser(u.db.QueryRow(ctx, `SELECT `+userColumns+` FROM "User" WHERE name = $1`, name))
	if err != nil {
		return nil, convertErr(err, "finding user by name %s", name)
	}
	return dbUser, nil
}

// LockByID читает юзера с эксклюзивной блокировкой строки до конца транзакции.
func (u *UserRepository) LockByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	dbUser, err := scanUser(u.db.QueryRow(ctx, `SELECT `+userColumns+` FROM "User" WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, convertErr(err, "locking user %s", id)
	}
	return dbUser, nil
}

// AddBalance прибавляет delta к балансу (для списания delta отрицательная) и возвращает новый баланс.
// Проверка на отрицательный баланс - задача сервисного слоя.
func (u *UserRepository) AddBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := u.db.QueryRow(ctx,
		`UPDATE "User" SET balance = balance + $2 WHERE id = $1 RETURNING balance`,
		id, delta,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, convertErr(err, "adding %s to balance of user %s", delta, id)
	}
	return balance, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.PasswordHash,
		&user.Token,
		&user.Nationality,
		&user.Discount,
		&user.Balance,
		&user.Admin,
		&user.Active,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &user, nil
}
