package pgrepo

import (
	"context"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/jackc/pgx/v5"
)

type CartItemRepository struct {
	db uow.DBTX
}

func NewCartItemRepository(db uow.DBTX) *CartItemRepository {
	return &CartItemRepository{db: db}
}

// Find читает позицию с блокировкой строки: следующим шагом позиция будет изменена.
func (c *CartItemRepository) Find(ctx context.Context, cartID, movieID int64) (*domain.CartItem, error) {
	var item domain.CartItem
	err := c.db.QueryRow(ctx,
		`SELECT cart_id, movie_id, quantity FROM "CartItem" WHERE cart_id = $1 AND movie_id = $2 FOR UPDATE`,
		cartID, movieID,
	).Scan(&item.CartID, &item.MovieID, &item.Quantity)
	if err != nil {
		return nil, convertErr(err, "finding item %d of cart %d", movieID, cartID)
	}
	return &item, nil
}

func (c *CartItemRepository) Insert(ctx context.Context, item domain.CartItem) error {
	_, err := c.db.Exec(ctx,
		`INSERT INTO "CartItem" (cart_id, movie_id, quantity) VALUES ($1, $2, $3)`,
		item.CartID, item.MovieID, item.Quantity,
	)
	if err != nil {
		return convertErr(err, "inserting item %d into cart %d", item.MovieID, item.CartID)
	}
	return nil
}

// UpdateQuantity выставляет новое количество и возвращает старое.
func (c *CartItemRepository) UpdateQuantity(ctx context.Context, cartID, movieID int64, quantity int32) (int32, error) {
	var old int32
	err := c.db.QueryRow(ctx, `
		UPDATE "CartItem" AS ci SET quantity = $3
		FROM (SELECT quantity FROM "CartItem" WHERE cart_id = $1 AND movie_id = $2 FOR UPDATE) AS prev
		WHERE ci.cart_id = $1 AND ci.movie_id = $2
		RETURNING prev.quantity`,
		cartID, movieID, quantity,
	).Scan(&old)
	if err != nil {
		return 0, convertErr(err, "updating item %d of cart %d", movieID, cartID)
	}
	return old, nil
}

// Delete удаляет позицию и возвращает ее количество на момент удаления.
func (c *CartItemRepository) Delete(ctx context.Context, cartID, movieID int64) (int32, error) {
	var old int32
	err := c.db.QueryRow(ctx,
		`DELETE FROM "CartItem" WHERE cart_id = $1 AND movie_id = $2 RETURNING quantity`,
		cartID, movieID,
	).Scan(&old)
	if err != nil {
		return 0, convertErr(err, "deleting item %d of cart %d", movieID, cartID)
	}
	return old, nil
}

// DeleteByCartID удаляет все позиции корзины и возвращает удаленные строки, отсортированными по id фильма:
// в этом порядке вызывающий код блокирует строки Movie, возвращая остатки. RETURNING порядок не гарантирует.
func (c *CartItemRepository) DeleteByCartID(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	rows, err := c.db.Query(ctx, `
		WITH deleted AS (
			DELETE FROM "CartItem" WHERE cart_id = $1 RETURNING cart_id, movie_id, quantity
		)
		SELECT cart_id, movie_id, quantity FROM deleted ORDER BY movie_id`,
		cartID,
	)
	if err != nil {
		return nil, convertErr(err, "deleting items of cart %d", cartID)
	}
	items, collectErr := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.CartItem])
	if collectErr != nil {
		return nil, convertErr(collectErr, "deleting items of cart %d", cartID)
	}
	return items, nil
}

// ListLines позиции корзины с текущими ценами фильмов, отсортированные по id фильма.
func (c *CartItemRepository) ListLines(ctx context.Context, cartID int64) ([]domain.CartLine, error) {
	rows, err := c.db.Query(ctx, `
		SELECT ci.movie_id, m.title, m.price, ci.quantity
		FROM "CartItem" ci
		JOIN "Movie" m ON m.id = ci.movie_id
		WHERE ci.cart_id = $1
		ORDER BY ci.movie_id`,
		cartID,
	)
	if err != nil {
		return nil, convertErr(err, "listing lines of cart %d", cartID)
	}
	lines, collectErr := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.CartLine])
	if collectErr != nil {
		return nil, convertErr(collectErr, "listing lines of cart %d", cartID)
	}
	return lines, nil
}
