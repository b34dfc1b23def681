package uow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	db DBTX
}

type otherRepo interface {
	Other()
}

func TestUnitOfWork_Register(t *testing.T) {
	u := NewUnitOfWork(nil)
	factory := func(db DBTX) Repository { return &stubRepo{db: db} }

	require.NoError(t, u.Register("stub", factory))
	require.ErrorIs(t, u.Register("stub", factory), ErrRepositoryAlreadyRegistered)

	repo, err := GetRepositoryAs[*stubRepo](u, "stub")
	require.NoError(t, err)
	assert.NotNil(t, repo)

	_, err = GetRepositoryAs[*stubRepo](u, "missing")
	require.ErrorIs(t, err, ErrRepositoryNotRegistered)

	_, err = GetRepositoryAs[otherRepo](u, "stub")
	require.ErrorIs(t, err, ErrInvalidRepositoryType)
}

func TestUnitOfWork_DoNilFunc(t *testing.T) {
	u := NewUnitOfWork(nil)
	require.ErrorIs(t, u.Do(context.Background(), nil), ErrNilTxFunc)
}

func TestTransaction_GetBindsOncePerTx(t *testing.T) {
	var created int
	factories := map[RepositoryName]RepositoryFactory{
		"stub": func(db DBTX) Repository {
			created++
			return &stubRepo{db: db}
		},
	}
	tx := NewTransaction(nil, factories)

	first, err := GetAs[*stubRepo](tx, "stub")
	require.NoError(t, err)
	second, err := GetAs[*stubRepo](tx, "stub")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, created)

	_, err = GetAs[*stubRepo](tx, "missing")
	require.ErrorIs(t, err, ErrRepositoryNotRegistered)

	_, err = GetAs[otherRepo](tx, "stub")
	require.ErrorIs(t, err, ErrInvalidRepositoryType)

	// новая транзакция получает новый экземпляр.
	_, err = GetAs[*stubRepo](NewTransaction(nil, factories), "stub")
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}
