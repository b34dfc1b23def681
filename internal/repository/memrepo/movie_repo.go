package memrepo

import (
	"context"
	"sort"
	"strings"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
)

type MovieRepository struct {
	store *Store
	tx    *memTx
}

func (m *MovieRepository) Create(ctx context.Context, args repoargs.CreateMovie) (*domain.Movie, error) {
	movie := domain.Movie{
		ID:          m.store.movieSeq.Add(1),
		Title:       args.Title,
		Description: args.Description,
		Year:        args.Year,
		Genre:       args.Genre,
		Price:       args.Price,
		Stock:       args.Stock,
		Available:   true,
	}
	err := m.store.write(ctx, m.tx, []string{movieKey(movie.ID)}, func(tx *memTx) error {
		m.store.movies.put(tx, movie.ID, movie)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

func (m *MovieRepository) FindByID(_ context.Context, id int64) (*domain.Movie, error) {
	var (
		movie domain.Movie
		ok    bool
	)
	m.store.read(m.tx, func(txID int64) { movie, ok = m.store.movies.get(txID, id) })
	if !ok {
		return nil, wrap(domain.ErrRecordNotFound, "finding movie %d", id)
	}
	return &movie, nil
}

func (m *MovieRepository) LockByID(ctx context.Context, id int64) (*domain.Movie, error) {
	var movie domain.Movie
	err := m.store.write(ctx, m.tx, []string{movieKey(id)}, func(tx *memTx) error {
		found, ok := m.store.movies.get(tx.id, id)
		if !ok {
			return wrap(domain.ErrRecordNotFound, "locking movie %d", id)
		}
		movie = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

func (m *MovieRepository) Update(ctx context.Context, id int64, args repoargs.UpdateMovie) (*domain.Movie, error) {
	var movie domain.Movie
	err := m.store.write(ctx, m.tx, []string{movieKey(id)}, func(tx *memTx) error {
		found, ok := m.store.movies.get(tx.id, id)
		if !ok {
			return wrap(domain.ErrRecordNotFound, "updating movie %d", id)
		}
		movie = applyUpdate(found, args)
		m.store.movies.put(tx, id, movie)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// Withdraw снимает фильм с продажи. Строка остается: на нее ссылаются заказы.
func (m *MovieRepository) Withdraw(ctx context.Context, id int64) error {
	return m.store.write(ctx, m.tx, []string{movieKey(id)}, func(tx *memTx) error {
		movie, ok := m.store.movies.get(tx.id, id)
		if !ok {
			return wrap(domain.ErrRecordNotFound, "withdrawing movie %d", id)
		}
		movie.Available = false
		m.store.movies.put(tx, id, movie)
		return nil
	})
}

// AttachActors связывает фильм с актерами по именам, заводя недостающих актеров.
func (m *MovieRepository) AttachActors(ctx context.Context, movieID int64, names []string) error {
	keys := []string{movieKey(movieID)}
	for _, name := range names {
		keys = append(keys, actorNameKey(name))
	}
	return m.store.write(ctx, m.tx, keys, func(tx *memTx) error {
		if !m.store.movies.has(tx.id, movieID) {
			return wrap(domain.ErrForeignKey, "attaching actors to movie %d", movieID)
		}
		ids := make(map[string]int64)
		m.store.actors.scan(tx.id, func(id int64, name string) { ids[name] = id })
		for _, name := range names {
			actorID, ok := ids[name]
			if !ok {
				actorID = m.store.actorSeq.Add(1)
				m.store.actors.put(tx, actorID, name)
				ids[name] = actorID
			}
			m.store.actorMovies.put(tx, actorMovieKey{parentID: actorID, movieID: movieID}, struct{}{})
		}
		return nil
	})
}

func (m *MovieRepository) Top(ctx context.Context, limit uint) ([]domain.Movie, error) {
	return m.Search(ctx, repoargs.MovieFilter{Limit: limit})
}

// Search фильмы в продаже, подходящие под filter, по убыванию голосов и рейтинга.
func (m *MovieRepository) Search(_ context.Context, filter repoargs.MovieFilter) ([]domain.Movie, error) {
	var movies []domain.Movie
	m.store.read(m.tx, func(txID int64) {
		cast := m.castOf(txID)
		m.store.movies.scan(txID, func(_ int64, movie domain.Movie) {
			if movie.Available && matches(movie, cast[movie.ID], filter) {
				movies = append(movies, movie)
			}
		})
	})
	sort.Slice(movies, func(i, j int) bool {
		if movies[i].Votes != movies[j].Votes {
			return movies[i].Votes > movies[j].Votes
		}
		if movies[i].Rating != movies[j].Rating {
			return movies[i].Rating > movies[j].Rating
		}
		return movies[i].ID < movies[j].ID
	})
	if uint(len(movies)) > filter.Limit {
		movies = movies[:filter.Limit]
	}
	return movies, nil
}

// castOf имена актеров каждого фильма. Вызывается под мьютексом хранилища.
func (m *MovieRepository) castOf(txID int64) map[int64][]string {
	names := make(map[int64]string)
	m.store.actors.scan(txID, func(id int64, name string) { names[id] = name })
	cast := make(map[int64][]string)
	m.store.actorMovies.scan(txID, func(key actorMovieKey, _ struct{}) {
		cast[key.movieID] = append(cast[key.movieID], names[key.parentID])
	})
	return cast
}

func matches(movie domain.Movie, cast []string, filter repoargs.MovieFilter) bool {
	if filter.Title != "" && !containsFold(movie.Title, filter.Title) {
		return false
	}
	if filter.Genre != "" && !containsFold(movie.Genre, filter.Genre) {
		return false
	}
	if filter.Year != 0 && movie.Year != filter.Year {
		return false
	}
	if filter.Actor != "" {
		found := false
		for _, name := range cast {
			if containsFold(name, filter.Actor) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, want := range filter.Actors {
		found := false
		for _, name := range cast {
			if name == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func applyUpdate(movie domain.Movie, args repoargs.UpdateMovie) domain.Movie {
	if args.Title != nil {
		movie.Title = *args.Title
	}
	if args.Description != nil {
		movie.Description = *args.Description
	}
	if args.Year != nil {
		movie.Year = *args.Year
	}
	if args.Genre != nil {
		movie.Genre = *args.Genre
	}
	if args.Price != nil {
		movie.Price = *args.Price
	}
	if args.Stock != nil {
		movie.Stock = *args.Stock
	}
	if args.Available != nil {
		movie.Available = *args.Available
	}
	return movie
}

func (m *MovieRepository) AdjustStock(ctx context.Context, id int64, delta int32) (int32, error) {
	var stock int32
	err := m.store.write(ctx, m.tx, []string{movieKey(id)}, func(tx *memTx) error {
		movie, ok := m.store.movies.get(tx.id, id)
		if !ok {
			return wrap(domain.ErrRecordNotFound, "adjusting stock of movie %d by %d", id, delta)
		}
		movie.Stock += delta
		m.store.movies.put(tx, id, movie)
		stock = movie.Stock
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stock, nil
}

func (m *MovieRepository) UpdateRating(ctx context.Context, id int64, rating float64, votes int32) error {
	return m.store.write(ctx, m.tx, []string{movieKey(id)}, func(tx *memTx) error {
		movie, ok := m.store.movies.get(tx.id, id)
		if !ok {
			return wrap(domain.ErrRecordNotFound, "updating rating of movie %d", id)
		}
		movie.Rating = rating
		movie.Votes = votes
		m.store.movies.put(tx, id, movie)
		return nil
	})
}

func (m *MovieRepository) ListIDs(_ context.Context, afterID int64, limit uint) ([]int64, error) {
	var ids []int64
	m.store.read(m.tx, func(txID int64) {
		ids = m.store.movies.keys(txID, func(id int64, _ domain.Movie) bool { return id > afterID })
	})
	return firstIDs(ids, limit), nil
}

func firstIDs(ids []int64, limit uint) []int64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if uint(len(ids)) > limit {
		ids = ids[:limit]
	}
	return ids
}
