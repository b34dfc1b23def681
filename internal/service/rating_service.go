package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type RatingService struct {
	runner     *txRunner
	settings   Settings
	aggregator RatingAggregator
	log        *logrus.Entry
}

func NewRatingService(u uow.UOW, settings Settings) *RatingService {
	return &RatingService{
		runner:   newTxRunner(u, settings, "rating"),
		settings: settings,
		log: settings.logger().WithFields(logrus.Fields{
			"component": "service",
			"module":    "rating",
		}),
	}
}

// Submit сохраняет оценку score фильма movieID от юзера userID. Первая оценка учитывается в рейтинге
// инкрементально, изменение оценки пересчитывает рейтинг по всем оценкам фильма.
func (s *RatingService) Submit(ctx context.Context, userID uuid.UUID, movieID int64, score float64) (*domain.Movie, error) {
	if score < domain.MinRatingScore || score > domain.MaxRatingScore {
		return nil, fmt.Errorf("submitting rating: %w", domain.ErrInvalidRating)
	}

	ctx, finish := startSpan(ctx, "RatingService.Submit")
	var movie *domain.Movie
	err := s.runner.run(ctx, "submit_rating", func(c context.Context, tx uow.TX) error {
		r, err := reposOf(tx)
		if err != nil {
			return err
		}
		// блокировка фильма упорядочивает инкрементальные обновления рейтинга.
		if _, err = r.movies.LockByID(c, movieID); err != nil {
			return err //nolint:wrapcheck
		}
		rating := domain.Rating{UserID: userID, MovieID: movieID, Score: score}

		_, err = r.ratings.Find(c, userID, movieID)
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			if err = r.ratings.Insert(c, rating); err != nil {
				return err //nolint:wrapcheck
			}
			movie, err = s.aggregator.Inserted(c, r, movieID, score)
			return err
		case err != nil:
			return err //nolint:wrapcheck
		}

		if err = r.ratings.Update(c, rating); err != nil {
			return err //nolint:wrapcheck
		}
		movie, err = s.aggregator.Recompute(c, r, movieID)
		return err
	})
	finish(err)
	if err != nil {
		return nil, fmt.Errorf("submitting rating: %w", err)
	}
	s.invalidate(ctx, movieID)
	return movie, nil
}

// Recompute пересчитывает рейтинг фильма по всем оценкам. Используется для сверки.
func (s *RatingService) Recompute(ctx context.Context, movieID int64) (*domain.Movie, error) {
	var movie *domain.Movie
	err := s.runner.run(ctx, "recompute_rating", func(c context.Context, tx uow.TX) error {
		r, err := reposOf(tx)
		if err != nil {
			return err
		}
		movie, err = s.aggregator.Recompute(c, r, movieID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("recomputing rating of movie %d: %w", movieID, err)
	}
	s.invalidate(ctx, movieID)
	return movie, nil
}

func (s *RatingService) invalidate(ctx context.Context, movieID int64) {
	if s.settings.Cache == nil {
		return
	}
	if err := s.settings.Cache.Invalidate(ctx, movieID); err != nil {
		s.log.WithError(err).WithField("movieID", movieID).Warn("invalidating cached movie")
	}
}
