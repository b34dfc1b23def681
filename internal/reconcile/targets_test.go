package reconcile

import (
	"testing"

	"github.com/fsdevblog/moviestore/internal/repository/memrepo"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/internal/service"
	"github.com/fsdevblog/moviestore/internal/service/psswd"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestServiceTargets_FixDrift(t *testing.T) {
	ctx := t.Context()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store := memrepo.NewStore()
	svs, err := service.Factory(store, service.Settings{
		Logger:    logger,
		Hasher:    psswd.Hasher{Cost: bcrypt.MinCost},
		JWTSecret: []byte("secret"),
	})
	require.NoError(t, err)

	user, _, err := svs.UserService.Register(ctx, service.RegisterUserArgs{Username: "drift", Password: "pass"})
	require.NoError(t, err)
	movie, err := svs.MovieService.Create(ctx, repoargs.CreateMovie{
		Title: "Drift",
		Price: decimal.RequireFromString("7.25"),
		Stock: 10,
	})
	require.NoError(t, err)

	view, err := svs.CartService.AddItem(ctx, user.ID, movie.ID, 2)
	require.NoError(t, err)
	_, err = svs.RatingService.Submit(ctx, user.ID, movie.ID, 6)
	require.NoError(t, err)

	// портим агрегаты в обход сервисов.
	carts, err := store.GetRepository(uow.RepositoryName(repoargs.CartRepoName))
	require.NoError(t, err)
	require.NoError(t, carts.(service.CartRepository).UpdateTotal(ctx, view.Cart.ID, decimal.NewFromInt(999))) //nolint:errcheck
	movies, err := store.GetRepository(uow.RepositoryName(repoargs.MovieRepoName))
	require.NoError(t, err)
	require.NoError(t, movies.(service.MovieRepository).UpdateRating(ctx, movie.ID, 1.5, 40)) //nolint:errcheck

	targets, err := ServiceTargets(store, svs)
	require.NoError(t, err)

	report, err := New(logger, targets...).Pass(ctx)
	require.NoError(t, err)
	require.Equal(t, Report{KindCart: {Checked: 1}, KindMovie: {Checked: 1}}, report)

	fixed, err := svs.CartService.Get(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("14.5").Equal(fixed.Cart.Total), "total %s", fixed.Cart.Total)

	rated, err := svs.MovieService.Get(ctx, movie.ID)
	require.NoError(t, err)
	require.InDelta(t, 6.0, rated.Rating, 1e-9)
	require.Equal(t, int32(1), rated.Votes)
}
