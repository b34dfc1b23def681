package memrepo

import (
	"context"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/google/uuid"
)

type RatingRepository struct {
	store *Store
	tx    *memTx
}

func (r *RatingRepository) Find(ctx context.Context, userID uuid.UUID, movieID int64) (*domain.Rating, error) {
	var rating domain.Rating
	err := r.store.write(ctx, r.tx, []string{ratingLockKey(userID, movieID)}, func(tx *memTx) error {
		score, ok := r.store.ratings.get(tx.id, ratingKey{userID: userID, movieID: movieID})
		if !ok {
			return wrap(domain.ErrRecordNotFound, "finding rating of movie %d by user %s", movieID, userID)
		}
		rating = domain.Rating{UserID: userID, MovieID: movieID, Score: score}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *RatingRepository) Insert(ctx context.Context, rating domain.Rating) error {
	lockKey := ratingLockKey(rating.UserID, rating.MovieID)
	return r.store.write(ctx, r.tx, []string{lockKey}, func(tx *memTx) error {
		if rating.Score < domain.MinRatingScore || rating.Score > domain.MaxRatingScore {
			return wrap(domain.ErrUnknown, "inserting rating of movie %d: rating check", rating.MovieID)
		}
		if !r.store.users.has(tx.id, rating.UserID) || !r.store.movies.has(tx.id, rating.MovieID) {
			return wrap(domain.ErrForeignKey, "inserting rating of movie %d by user %s", rating.MovieID, rating.UserID)
		}
		key := ratingKey{userID: rating.UserID, movieID: rating.MovieID}
		if r.store.ratings.has(tx.id, key) {
			return wrap(domain.ErrDuplicateKey, "inserting rating of movie %d by user %s", rating.MovieID, rating.UserID)
		}
		r.store.ratings.put(tx, key, rating.Score)
		return nil
	})
}

func (r *RatingRepository) Update(ctx context.Context, rating domain.Rating) error {
	lockKey := ratingLockKey(rating.UserID, rating.MovieID)
	return r.store.write(ctx, r.tx, []string{lockKey}, func(tx *memTx) error {
		key := ratingKey{userID: rating.UserID, movieID: rating.MovieID}
		if !r.store.ratings.has(tx.id, key) {
			return wrap(domain.ErrRecordNotFound, "updating rating of movie %d by user %s", rating.MovieID, rating.UserID)
		}
		r.store.ratings.put(tx, key, rating.Score)
		return nil
	})
}

func (r *RatingRepository) Aggregate(_ context.Context, movieID int64) (*repoargs.RatingAggregate, error) {
	var (
		sum float64
		agg repoargs.RatingAggregate
	)
	r.store.read(r.tx, func(txID int64) {
		r.store.ratings.scan(txID, func(key ratingKey, score float64) {
			if key.movieID == movieID {
				sum += score
				agg.Count++
			}
		})
	})
	if agg.Count > 0 {
		agg.Average = sum / float64(agg.Count)
	}
	return &agg, nil
}
