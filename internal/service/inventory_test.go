package service

import (
	"testing"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/service/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type InventoryAdjusterTestSuite struct {
	suite.Suite
	mockMovies *mocks.MockMovieRepository
	mockOrders *mocks.MockOrderRepository
	repos      *txRepos
}

func TestInventoryAdjusterSuite(t *testing.T) {
	suite.Run(t, new(InventoryAdjusterTestSuite))
}

func (s *InventoryAdjusterTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	s.mockMovies = mocks.NewMockMovieRepository(mockCtrl)
	s.mockOrders = mocks.NewMockOrderRepository(mockCtrl)
	s.repos = &txRepos{movies: s.mockMovies, orders: s.mockOrders}
}

// Хранилище может вернуть удаленные позиции в любом порядке, а остатки возвращаются по возрастанию id фильма.
func (s *InventoryAdjusterTestSuite) TestItemsDeletedRestocksInMovieOrder() {
	items := []domain.CartItem{
		{CartID: 7, MovieID: 30, Quantity: 3},
		{CartID: 7, MovieID: 10, Quantity: 1},
		{CartID: 7, MovieID: 20, Quantity: 2},
	}

	s.mockOrders.EXPECT().Exists(gomock.Any(), int64(7)).Return(false, nil).Times(3)
	gomock.InOrder(
		s.mockMovies.EXPECT().AdjustStock(gomock.Any(), int64(10), int32(1)).Return(int32(1), nil),
		s.mockMovies.EXPECT().AdjustStock(gomock.Any(), int64(20), int32(2)).Return(int32(2), nil),
		s.mockMovies.EXPECT().AdjustStock(gomock.Any(), int64(30), int32(3)).Return(int32(3), nil),
	)

	s.Require().NoError(InventoryAdjuster{}.ItemsDeleted(s.T().Context(), s.repos, items))
	s.Equal(int64(30), items[0].MovieID, "caller slice untouched")
}

func (s *InventoryAdjusterTestSuite) TestItemsDeletedOfOrderedCart() {
	s.mockOrders.EXPECT().Exists(gomock.Any(), int64(7)).Return(true, nil).Times(2)

	err := InventoryAdjuster{}.ItemsDeleted(s.T().Context(), s.repos, []domain.CartItem{
		{CartID: 7, MovieID: 2, Quantity: 1},
		{CartID: 7, MovieID: 1, Quantity: 1},
	})
	s.Require().NoError(err)
}

func (s *InventoryAdjusterTestSuite) TestItemsDeletedStopsOnError() {
	s.mockOrders.EXPECT().Exists(gomock.Any(), int64(7)).Return(false, nil)
	s.mockMovies.EXPECT().AdjustStock(gomock.Any(), int64(1), int32(1)).Return(int32(0), domain.ErrDeadlock)

	err := InventoryAdjuster{}.ItemsDeleted(s.T().Context(), s.repos, []domain.CartItem{
		{CartID: 7, MovieID: 2, Quantity: 1},
		{CartID: 7, MovieID: 1, Quantity: 1},
	})
	s.Require().ErrorIs(err, domain.ErrDeadlock)
}
