package service

import (
	"cmp"
	"context"
	"slices"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/metrics"
)

// InventoryAdjuster ведет остаток фильма вслед за количеством в позициях корзины, пока корзина
// не оформлена в заказ. Вызывается в той же транзакции, что и изменение позиции, после записи.
type InventoryAdjuster struct {
	metrics *metrics.Metrics
}

func (a InventoryAdjuster) ItemInserted(ctx context.Context, r *txRepos, item domain.CartItem) error {
	return a.adjust(ctx, r, item.CartID, item.MovieID, -item.Quantity)
}

func (a InventoryAdjuster) ItemUpdated(ctx context.Context, r *txRepos, cartID, movieID int64, oldQty, newQty int32) error {
	return a.adjust(ctx, r, cartID, movieID, oldQty-newQty)
}

func (a InventoryAdjuster) ItemDeleted(ctx context.Context, r *txRepos, item domain.CartItem) error {
	return a.adjust(ctx, r, item.CartID, item.MovieID, item.Quantity)
}

// ItemsDeleted возвращает остатки удаленных позиций по возрастанию id фильма: так все операции блокируют
// строки Movie в одном порядке, независимо от порядка, в котором хранилище вернуло позиции.
func (a InventoryAdjuster) ItemsDeleted(ctx context.Context, r *txRepos, items []domain.CartItem) error {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(x, y domain.CartItem) int { return cmp.Compare(x.MovieID, y.MovieID) })
	for _, item := range sorted {
		if err := a.ItemDeleted(ctx, r, item); err != nil {
			return err
		}
	}
	return nil
}

// adjust меняет остаток на delta. Если заказ с id корзины уже существует, остаток не трогается:
// позиции корзины стали позициями заказа. Уход остатка в минус возвращает *domain.OutOfStockError.
func (a InventoryAdjuster) adjust(ctx context.Context, r *txRepos, cartID, movieID int64, delta int32) error {
	if delta == 0 {
		return nil
	}
	ordered, err := r.orders.Exists(ctx, cartID)
	if err != nil {
		return err //nolint:wrapcheck
	}
	if ordered {
		return nil
	}

	stock, err := r.movies.AdjustStock(ctx, movieID, delta)
	if err != nil {
		return err //nolint:wrapcheck
	}
	if stock < 0 {
		a.metrics.OutOfStock()
		return domain.NewOutOfStockError(movieID, stock-delta, -delta)
	}
	return nil
}
