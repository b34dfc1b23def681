package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTopMovies uint = 10
	MaxTopMovies     uint = 100
)

type MovieService struct {
	runner    *txRunner
	movieRepo MovieRepository
	cache     MovieCache
	log       *logrus.Entry
}

func NewMovieService(u uow.UOW, settings Settings) (*MovieService, error) {
	movieRepo, err := uow.GetRepositoryAs[MovieRepository](u, uow.RepositoryName(repoargs.MovieRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &MovieService{
		runner:    newTxRunner(u, settings, "movie"),
		movieRepo: movieRepo,
		cache:     settings.Cache,
		log: settings.logger().WithFields(logrus.Fields{
			"component": "service",
			"module":    "movie",
		}),
	}, nil
}

// Get читает фильм через кэш. Ошибки кэша не мешают чтению из хранилища.
func (s *MovieService) Get(ctx context.Context, id int64) (*domain.Movie, error) {
	if s.cache != nil {
		if movie, err := s.cache.Get(ctx, id); err == nil {
			return movie, nil
		}
	}
	movie, err := s.movieRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting movie: %w", err)
	}
	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, movie); cacheErr != nil {
			s.log.WithError(cacheErr).WithField("movieID", id).Warn("caching movie")
		}
	}
	return movie, nil
}

// Top n фильмов с наибольшим числом голосов, при равенстве - с большим рейтингом.
func (s *MovieService) Top(ctx context.Context, n uint) ([]domain.Movie, error) {
	if n == 0 {
		n = DefaultTopMovies
	}
	n = min(n, MaxTopMovies)
	movies, err := s.movieRepo.Top(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("getting top movies: %w", err)
	}
	return movies, nil
}

// Search фильмы в продаже по фильтру, упорядоченные как Top. Limit по умолчанию DefaultTopMovies,
// не больше MaxTopMovies.
func (s *MovieService) Search(ctx context.Context, filter repoargs.MovieFilter) ([]domain.Movie, error) {
	filter.Title = strings.TrimSpace(filter.Title)
	filter.Genre = strings.TrimSpace(filter.Genre)
	filter.Actor = strings.TrimSpace(filter.Actor)
	filter.Actors = normalizeNames(filter.Actors)
	if filter.Year < 0 {
		return nil, fmt.Errorf("searching movies: %w", domain.ErrInvalidFilter)
	}
	if filter.Limit == 0 {
		filter.Limit = DefaultTopMovies
	}
	filter.Limit = min(filter.Limit, MaxTopMovies)

	movies, err := s.movieRepo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("searching movies: %w", err)
	}
	return movies, nil
}

// Create заводит фильм вместе с актерами в одной транзакции.
func (s *MovieService) Create(ctx context.Context, args repoargs.CreateMovie) (*domain.Movie, error) {
	args.Title = strings.TrimSpace(args.Title)
	if args.Title == "" {
		return nil, fmt.Errorf("creating movie: %w", domain.ErrInvalidMovie)
	}
	if args.Stock < 0 || args.Price.IsNegative() {
		return nil, fmt.Errorf("creating movie: %w", domain.ErrInvalidAmount)
	}
	args.Actors = normalizeNames(args.Actors)

	var movie *domain.Movie
	err := s.runner.run(ctx, "create_movie", func(c context.Context, tx uow.TX) error {
		r, err := reposOf(tx)
		if err != nil {
			return err
		}
		if movie, err = r.movies.Create(c, args); err != nil {
			return err //nolint:wrapcheck
		}
		return r.movies.AttachActors(c, movie.ID, args.Actors) //nolint:wrapcheck
	})
	if err != nil {
		return nil, fmt.Errorf("creating movie: %w", err)
	}
	return movie, nil
}

// Update меняет поля фильма. Пустое изменение возвращает domain.ErrEmptyUpdate.
func (s *MovieService) Update(ctx context.Context, id int64, args repoargs.UpdateMovie) (*domain.Movie, error) {
	if args.Empty() {
		return nil, fmt.Errorf("updating movie %d: %w", id, domain.ErrEmptyUpdate)
	}
	if args.Title != nil {
		title := strings.TrimSpace(*args.Title)
		if title == "" {
			return nil, fmt.Errorf("updating movie %d: %w", id, domain.ErrInvalidMovie)
		}
		args.Title = &title
	}
	if (args.Stock != nil && *args.Stock < 0) || (args.Price != nil && args.Price.IsNegative()) {
		return nil, fmt.Errorf("updating movie %d: %w", id, domain.ErrInvalidAmount)
	}

	movie, err := s.movieRepo.Update(ctx, id, args)
	if err != nil {
		return nil, fmt.Errorf("updating movie %d: %w", id, err)
	}
	s.invalidate(ctx, id)
	return movie, nil
}

// Withdraw снимает фильм с продажи: он пропадает из каталога и его нельзя положить в корзину.
// Позиции, уже лежащие в корзинах, и заказы не трогаются.
func (s *MovieService) Withdraw(ctx context.Context, id int64) error {
	if err := s.movieRepo.Withdraw(ctx, id); err != nil {
		return fmt.Errorf("withdrawing movie %d: %w", id, err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *MovieService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.WithError(err).WithField("movieID", id).Warn("invalidating cached movie")
	}
}

// normalizeNames обрезает пробелы, выбрасывает пустые имена и повторы, сохраняя порядок.
func normalizeNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
