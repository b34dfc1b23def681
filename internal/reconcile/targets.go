package reconcile

import (
	"context"
	"errors"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/internal/service"
	"github.com/fsdevblog/moviestore/pkg/uow"
)

// ServiceTargets корзины (итог) и фильмы (рейтинг), пересчитываемые через сервисный слой.
func ServiceTargets(u uow.UOW, svs *service.AppServices) ([]Target, error) {
	carts, err := uow.GetRepositoryAs[IDLister](u, uow.RepositoryName(repoargs.CartRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	movies, err := uow.GetRepositoryAs[IDLister](u, uow.RepositoryName(repoargs.MovieRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return []Target{
		{
			Kind: KindCart,
			IDs:  carts,
			Recomputer: RecomputerFunc(func(ctx context.Context, id int64) error {
				_, recErr := svs.CartService.RecomputeTotal(ctx, id)
				// корзина могла быть рассчитана и удалена после выборки id.
				if errors.Is(recErr, domain.ErrRecordNotFound) {
					return nil
				}
				return recErr //nolint:wrapcheck
			}),
		},
		{
			Kind: KindMovie,
			IDs:  movies,
			Recomputer: RecomputerFunc(func(ctx context.Context, id int64) error {
				_, recErr := svs.RatingService.Recompute(ctx, id)
				return recErr //nolint:wrapcheck
			}),
		},
	}, nil
}
