package service

import (
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/pkg/uow"
)

// txRepos репозитории, привязанные к одной транзакции.
type txRepos struct {
	users   UserRepository
	movies  MovieRepository
	carts   CartRepository
	items   CartItemRepository
	orders  OrderRepository
	ratings RatingRepository
}

func reposOf(tx uow.TX) (*txRepos, error) {
	var (
		r   txRepos
		err error
	)
	if r.users, err = uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName)); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if r.movies, err = uow.GetAs[MovieRepository](tx, uow.RepositoryName(repoargs.MovieRepoName)); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if r.carts, err = uow.GetAs[CartRepository](tx, uow.RepositoryName(repoargs.CartRepoName)); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if r.items, err = uow.GetAs[CartItemRepository](tx, uow.RepositoryName(repoargs.CartItemRepoName)); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if r.orders, err = uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName)); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if r.ratings, err = uow.GetAs[RatingRepository](tx, uow.RepositoryName(repoargs.RatingRepoName)); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &r, nil
}
