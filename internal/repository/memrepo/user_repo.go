package memrepo

import (
	"context"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UserRepository struct {
	store *Store
	tx    *memTx
}

func (u *UserRepository) CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error) {
	user := domain.User{
		ID:           uuid.New(),
		Name:         args.Name,
		PasswordHash: args.PasswordHash,
		Nationality:  args.Nationality,
		Discount:     args.Discount,
		Balance:      args.Balance,
		Admin:        args.Admin,
		Active:       true,
	}
	keys := []string{userNameKey(user.Name), userKey(user.ID)}
	err := u.store.write(ctx, u.tx, keys, func(tx *memTx) error {
		taken := u.store.users.keys(tx.id, func(_ uuid.UUID, existing domain.User) bool {
			return existing.Name == user.Name
		})
		if len(taken) > 0 {
			return wrap(domain.ErrDuplicateKey, "creating user %s", user.Name)
		}
		u.store.users.put(tx, user.ID, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	var (
		user domain.User
		ok   bool
	)
	u.store.read(u.tx, func(txID int64) { user, ok = u.store.users.get(txID, id) })
	if !ok {
		return nil, wrap(domain.ErrRecordNotFound, "finding user by id %s", id)
	}
	return &user, nil
}

func (u *UserRepository) FindByName(_ context.Context, name string) (*domain.User, error) {
	var found *domain.User
	u.store.read(u.tx, func(txID int64) {
		u.store.users.scan(txID, func(_ uuid.UUID, user domain.User) {
			if user.Name == name {
				found = &user
			}
		})
	})
	if found == nil {
		return nil, wrap(domain.ErrRecordNotFound, "finding user by name %s", name)
	}
	return found, nil
}

func (u *UserRepository) LockByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := u.store.write(ctx, u.tx, []string{userKey(id)}, func(tx *memTx) error {
		found, ok := u.store.users.get(tx.id, id)
		if !ok {
			return wrap(domain.ErrRecordNotFound, "locking user %s", id)
		}
		user = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserRepository) AddBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := u.store.write(ctx, u.tx, []string{userKey(id)}, func(tx *memTx) error {
		user, ok := u.store.users.get(tx.id, id)
		if !ok {
			return wrap(domain.ErrRecordNotFound, "adding %s to balance of user %s", delta, id)
		}
		user.Balance = user.Balance.Add(delta)
		u.store.users.put(tx, id, user)
		balance = user.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}
