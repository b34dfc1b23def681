package pgrepo

import (
	"context"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/google/uuid"
)

type RatingRepository struct {
	db uow.DBTX
}

func NewRatingRepository(db uow.DBTX) *RatingRepository {
	return &RatingRepository{db: db}
}

func (r *RatingRepository) Find(ctx context.Context, userID uuid.UUID, movieID int64) (*domain.Rating, error) {
	var rating domain.Rating
	err := r.db.QueryRow(ctx,
		`SELECT user_id, movie_id, rating FROM "Rating" WHERE user_id = $1 AND movie_id = $2 FOR UPDATE`,
		userID, movieID,
	).Scan(&rating.UserID, &rating.MovieID, &rating.Score)
	if err != nil {
		return nil, convertErr(err, "finding rating of movie %d by user %s", movieID, userID)
	}
	return &rating, nil
}

// Insert добавляет оценку. Повторная оценка того же фильма тем же юзером вернет domain.ErrDuplicateKey.
func (r *RatingRepository) Insert(ctx context.Context, rating domain.Rating) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO "Rating" (user_id, movie_id, rating) VALUES ($1, $2, $3)`,
		rating.UserID, rating.MovieID, rating.Score,
	)
	if err != nil {
		return convertErr(err, "inserting rating of movie %d by user %s", rating.MovieID, rating.UserID)
	}
	return nil
}

func (r *RatingRepository) Update(ctx context.Context, rating domain.Rating) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE "Rating" SET rating = $3 WHERE user_id = $1 AND movie_id = $2`,
		rating.UserID, rating.MovieID, rating.Score,
	)
	if err != nil {
		return convertErr(err, "updating rating of movie %d by user %s", rating.MovieID, rating.UserID)
	}
	return notFoundIfNoRows(tag, "updating rating of movie %d by user %s", rating.MovieID, rating.UserID)
}

// Aggregate точные среднее и количество оценок фильма. Без оценок возвращает нули.
func (r *RatingRepository) Aggregate(ctx context.Context, movieID int64) (*repoargs.RatingAggregate, error) {
	var agg repoargs.RatingAggregate
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM "Rating" WHERE movie_id = $1`,
		movieID,
	).Scan(&agg.Average, &agg.Count)
	if err != nil {
		return nil, convertErr(err, "aggregating ratings of movie %d", movieID)
	}
	return &agg, nil
}
