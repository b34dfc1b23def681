package service

import (
	"testing"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/service/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type RatingServiceTestSuite struct {
	storeSuite
	mockCache *mocks.MockMovieCache
}

func TestRatingServiceSuite(t *testing.T) {
	suite.Run(t, new(RatingServiceTestSuite))
}

func (s *RatingServiceTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	s.mockCache = mocks.NewMockMovieCache(mockCtrl)
	s.setup(Settings{Cache: s.mockCache})
}

func (s *RatingServiceTestSuite) TestSubmit() {
	ctx := s.T().Context()
	movie := s.newMovie("10", 1)
	alice := s.newUser("0", "0")
	bob := s.newUser("0", "0")
	ratingSvc := s.services.RatingService

	s.mockCache.EXPECT().Invalidate(gomock.Any(), movie.ID).Return(nil).Times(3)

	rated, err := ratingSvc.Submit(ctx, alice.ID, movie.ID, 7)
	s.Require().NoError(err)
	s.InDelta(7.0, rated.Rating, 1e-9)
	s.Equal(int32(1), rated.Votes)

	rated, err = ratingSvc.Submit(ctx, bob.ID, movie.ID, 9)
	s.Require().NoError(err)
	s.InDelta(8.0, rated.Rating, 1e-9)
	s.Equal(int32(2), rated.Votes)

	// повторная оценка того же юзера пересчитывает среднее, голосов не прибавляется.
	rated, err = ratingSvc.Submit(ctx, alice.ID, movie.ID, 3)
	s.Require().NoError(err)
	s.InDelta(6.0, rated.Rating, 1e-9)
	s.Equal(int32(2), rated.Votes)

	stored, err := s.movies().FindByID(ctx, movie.ID)
	s.Require().NoError(err)
	s.InDelta(6.0, stored.Rating, 1e-9)
	s.Equal(int32(2), stored.Votes)
}

func (s *RatingServiceTestSuite) TestSubmitErrors() {
	ctx := s.T().Context()
	movie := s.newMovie("10", 1)
	user := s.newUser("0", "0")

	for _, score := range []float64{-0.5, 10.01} {
		_, err := s.services.RatingService.Submit(ctx, user.ID, movie.ID, score)
		s.Require().ErrorIs(err, domain.ErrInvalidRating)
	}

	_, err := s.services.RatingService.Submit(ctx, user.ID, movie.ID+100, 5)
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *RatingServiceTestSuite) TestRecomputeCorrectsDrift() {
	ctx := s.T().Context()
	movie := s.newMovie("10", 1)
	user := s.newUser("0", "0")

	s.mockCache.EXPECT().Invalidate(gomock.Any(), movie.ID).Return(domain.ErrUnknown).Times(2)

	_, err := s.services.RatingService.Submit(ctx, user.ID, movie.ID, 4)
	s.Require().NoError(err)

	s.Require().NoError(s.movies().UpdateRating(ctx, movie.ID, 9.5, 7))

	fixed, err := s.services.RatingService.Recompute(ctx, movie.ID)
	s.Require().NoError(err)
	s.InDelta(4.0, fixed.Rating, 1e-9)
	s.Equal(int32(1), fixed.Votes)
}
