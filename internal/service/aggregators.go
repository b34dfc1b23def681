package service

import (
	"context"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/shopspring/decimal"
)

// CartAggregator пересчитывает итог корзины с нуля по текущим позициям и ценам.
type CartAggregator struct{}

func (CartAggregator) Recalculate(ctx context.Context, r *txRepos, cartID int64) (decimal.Decimal, error) {
	lines, err := r.items.ListLines(ctx, cartID)
	if err != nil {
		return decimal.Zero, err //nolint:wrapcheck
	}
	total := sumLines(lines)
	if err = r.carts.UpdateTotal(ctx, cartID, total); err != nil {
		return decimal.Zero, err //nolint:wrapcheck
	}
	return total, nil
}

func sumLines(lines []domain.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// RatingAggregator ведет средний рейтинг и число голосов фильма.
type RatingAggregator struct{}

// Inserted учитывает новую оценку инкрементально, без чтения остальных оценок.
func (RatingAggregator) Inserted(ctx context.Context, r *txRepos, movieID int64, score float64) (*domain.Movie, error) {
	movie, err := r.movies.LockByID(ctx, movieID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	votes := movie.Votes + 1
	rating := score
	if movie.Votes > 0 {
		rating = (movie.Rating*float64(movie.Votes) + score) / float64(votes)
	}
	if err = r.movies.UpdateRating(ctx, movieID, rating, votes); err != nil {
		return nil, err //nolint:wrapcheck
	}
	movie.Rating, movie.Votes = rating, votes
	return movie, nil
}

// Recompute пересчитывает среднее и число голосов по всем оценкам фильма.
func (RatingAggregator) Recompute(ctx context.Context, r *txRepos, movieID int64) (*domain.Movie, error) {
	movie, err := r.movies.LockByID(ctx, movieID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	agg, err := r.ratings.Aggregate(ctx, movieID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if err = r.movies.UpdateRating(ctx, movieID, agg.Average, agg.Count); err != nil {
		return nil, err //nolint:wrapcheck
	}
	movie.Rating, movie.Votes = agg.Average, agg.Count
	return movie, nil
}
