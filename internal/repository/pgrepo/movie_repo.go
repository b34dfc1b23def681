package pgrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const movieColumns = `id, title, description, year, genre, price, rating, stock, votes, available`

type MovieRepository struct {
	db uow.DBTX
}

func NewMovieRepository(db uow.DBTX) *MovieRepository {
	return &MovieRepository{db: db}
}

func (m *MovieRepository) Create(ctx context.Context, movie repoargs.CreateMovie) (*domain.Movie, error) {
	dbMovie, err := scanMovie(m.db.QueryRow(ctx, `
		INSERT INTO "Movie" (title, description, year, genre, price, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+movieColumns,
		movie.Title, movie.Description, movie.Year, movie.Genre, movie.Price, movie.Stock,
	))
	if err != nil {
		return nil, convertErr(err, "creating movie `%s`", movie.Title)
	}
	return dbMovie, nil
}

func (m *MovieRepository) FindByID(ctx context.Context, id int64) (*domain.Movie, error) {
	dbMovie, err := scanMovie(m.db.QueryRow(ctx, `SELECT `+movieColumns+` FROM "Movie" WHERE id = $1`, id))
	if err != nil {
		return nil, convertErr(err, "finding movie %d", id)
	}
	return dbMovie, nil
}

// LockByID читает фильм с блокировкой строки. Нужен инкрементальному пересчету рейтинга.
func (m *MovieRepository) LockByID(ctx context.Context, id int64) (*domain.Movie, error) {
	dbMovie, err := scanMovie(m.db.QueryRow(ctx, `SELECT `+movieColumns+` FROM "Movie" WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, convertErr(err, "locking movie %d", id)
	}
	return dbMovie, nil
}

// Update меняет переданные поля фильма, nil-поля остаются прежними.
func (m *MovieRepository) Update(ctx context.Context, id int64, args repoargs.UpdateMovie) (*domain.Movie, error) {
	dbMovie, err := scanMovie(m.db.QueryRow(ctx, `
		UPDATE "Movie" SET
			title       = COALESCE($2::varchar, title),
			description = COALESCE($3::text, description),
			year        = COALESCE($4::integer, year),
			genre       = COALESCE($5::varchar, genre),
			price       = COALESCE($6::numeric, price),
			stock       = COALESCE($7::integer, stock),
			available   = COALESCE($8::boolean, available)
		WHERE id = $1
		RETURNING `+movieColumns,
		id, args.Title, args.Description, args.Year, args.Genre, args.Price, args.Stock, args.Available,
	))
	if err != nil {
		return nil, convertErr(err, "updating movie %d", id)
	}
	return dbMovie, nil
}

// Withdraw снимает фильм с продажи. Строка остается: на нее ссылаются позиции заказов.
func (m *MovieRepository) Withdraw(ctx context.Context, id int64) error {
	tag, err := m.db.Exec(ctx, `UPDATE "Movie" SET available = false WHERE id = $1`, id)
	if err != nil {
		return convertErr(err, "withdrawing movie %d", id)
	}
	return notFoundIfNoRows(tag, "withdrawing movie %d", id)
}

// AttachActors связывает фильм с актерами по именам, заводя недостающих актеров.
func (m *MovieRepository) AttachActors(ctx context.Context, movieID int64, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := m.db.Exec(ctx,
		`INSERT INTO "Actor" (name) SELECT unnest($1::varchar[]) ON CONFLICT (name) DO NOTHING`,
		names,
	); err != nil {
		return convertErr(err, "creating actors of movie %d", movieID)
	}
	if _, err := m.db.Exec(ctx, `
		INSERT INTO "ActorMovie" (actor_id, movie_id)
		SELECT id, $1 FROM "Actor" WHERE name = ANY($2)
		ON CONFLICT DO NOTHING`,
		movieID, names,
	); err != nil {
		return convertErr(err, "attaching actors to movie %d", movieID)
	}
	return nil
}

// Top возвращает limit фильмов, отсортированных по количеству голосов и рейтингу по убыванию.
func (m *MovieRepository) Top(ctx context.Context, limit uint) ([]domain.Movie, error) {
	return m.Search(ctx, repoargs.MovieFilter{Limit: limit})
}

// Search фильмы в продаже, подходящие под filter, по убыванию голосов и рейтинга.
func (m *MovieRepository) Search(ctx context.Context, filter repoargs.MovieFilter) ([]domain.Movie, error) {
	query, args := searchQuery(filter)
	rows, err := m.db.Query(ctx, query, args...)
	if err != nil {
		return nil, convertErr(err, "searching movies")
	}
	movies, collectErr := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Movie, error) {
		movie, scanErr := scanMovie(row)
		if scanErr != nil {
			return domain.Movie{}, scanErr
		}
		return *movie, nil
	})
	if collectErr != nil {
		return nil, convertErr(collectErr, "searching movies")
	}
	return movies, nil
}

// searchQuery собирает запрос поиска по каталогу. Значения фильтра идут только параметрами.
func searchQuery(filter repoargs.MovieFilter) (string, []any) {
	var (
		conds = []string{"available"}
		args  []any
	)
	param := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Title != "" {
		conds = append(conds, `title ILIKE '%' || `+param(escapeLike(filter.Title))+` || '%'`)
	}
	if filter.Genre != "" {
		conds = append(conds, `genre ILIKE '%' || `+param(escapeLike(filter.Genre))+` || '%'`)
	}
	if filter.Year != 0 {
		conds = append(conds, `year = `+param(filter.Year))
	}
	if filter.Actor != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM "ActorMovie" am JOIN "Actor" a ON a.id = am.actor_id
			WHERE am.movie_id = "Movie".id AND a.name ILIKE '%' || `+param(escapeLike(filter.Actor))+` || '%')`)
	}
	if len(filter.Actors) > 0 {
		names := param(filter.Actors)
		conds = append(conds, `id IN (
			SELECT am.movie_id FROM "ActorMovie" am JOIN "Actor" a ON a.id = am.actor_id
			WHERE a.name = ANY(`+names+`)
			GROUP BY am.movie_id
			HAVING COUNT(DISTINCT a.name) = `+param(len(filter.Actors))+`)`)
	}

	query := `SELECT ` + movieColumns + ` FROM "Movie" WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY votes DESC, rating DESC, id LIMIT ` + param(int64(filter.Limit)) //nolint:gosec
	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike экранирует спецсимволы шаблона LIKE: подстрока ищется буквально.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// AdjustStock меняет остаток на delta и возвращает новое значение. Отрицательный результат не отклоняется
// на уровне базы, его проверяет сервисный слой.
func (m *MovieRepository) AdjustStock(ctx context.Context, id int64, delta int32) (int32, error) {
	var stock int32
	err := m.db.QueryRow(ctx,
		`UPDATE "Movie" SET stock = stock + $2 WHERE id = $1 RETURNING stock`,
		id, delta,
	).Scan(&stock)
	if err != nil {
		return 0, convertErr(err, "adjusting stock of movie %d by %d", id, delta)
	}
	return stock, nil
}

func (m *MovieRepository) UpdateRating(ctx context.Context, id int64, rating float64, votes int32) error {
	tag, err := m.db.Exec(ctx,
		`UPDATE "Movie" SET rating = $2, votes = $3 WHERE id = $1`,
		id, rating, votes,
	)
	if err != nil {
		return convertErr(err, "updating rating of movie %d", id)
	}
	return notFoundIfNoRows(tag, "updating rating of movie %d", id)
}

// ListIDs постраничная выборка id фильмов (keyset по id).
func (m *MovieRepository) ListIDs(ctx context.Context, afterID int64, limit uint) ([]int64, error) {
	rows, err := m.db.Query(ctx,
		`SELECT id FROM "Movie" WHERE id > $1 ORDER BY id LIMIT $2`,
		afterID, int64(limit), //nolint:gosec
	)
	if err != nil {
		return nil, convertErr(err, "listing movie ids after %d", afterID)
	}
	ids, collectErr := pgx.CollectRows(rows, pgx.RowTo[int64])
	if collectErr != nil {
		return nil, convertErr(collectErr, "listing movie ids after %d", afterID)
	}
	return ids, nil
}

func scanMovie(row pgx.Row) (*domain.Movie, error) {
	var movie domain.Movie
	if err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Description,
		&movie.Year,
		&movie.Genre,
		&movie.Price,
		&movie.Rating,
		&movie.Stock,
		&movie.Votes,
		&movie.Available,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &movie, nil
}
