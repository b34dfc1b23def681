package pgrepo

import (
	"fmt"

	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/pkg/uow"
)

// Register регистрирует фабрики всех репозиториев Postgres в реестре unit of work.
func Register(r uow.Registry) error {
	factories := map[repoargs.RepositoryName]uow.RepositoryFactory{
		repoargs.UserRepoName:     func(db uow.DBTX) uow.Repository { return NewUserRepository(db) },
		repoargs.MovieRepoName:    func(db uow.DBTX) uow.Repository { return NewMovieRepository(db) },
		repoargs.CartRepoName:     func(db uow.DBTX) uow.Repository { return NewCartRepository(db) },
		repoargs.CartItemRepoName: func(db uow.DBTX) uow.Repository { return NewCartItemRepository(db) },
		repoargs.OrderRepoName:    func(db uow.DBTX) uow.Repository { return NewOrderRepository(db) },
		repoargs.RatingRepoName:   func(db uow.DBTX) uow.Repository { return NewRatingRepository(db) },
	}
	for name, factory := range factories {
		if err := r.Register(uow.RepositoryName(name), factory); err != nil {
			return fmt.Errorf("registering %s repository: %w", name, err)
		}
	}
	return nil
}
