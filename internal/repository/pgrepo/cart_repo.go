package pgrepo

import (
	"context"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type CartRepository struct {
	db uow.DBTX
}

func NewCartRepository(db uow.DBTX) *CartRepository {
	return &CartRepository{db: db}
}

// Create создает пустую корзину юзера. Вторая корзина того же юзера вернет domain.ErrDuplicateKey.
func (c *CartRepository) Create(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := scanCart(c.db.QueryRow(ctx,
		`INSERT INTO "Cart" (user_id, total) VALUES ($1, 0) RETURNING id, user_id, total`,
		userID,
	))
	if err != nil {
		return nil, convertErr(err, "creating cart for user %s", userID)
	}
	return cart, nil
}

func (c *CartRepository) FindByID(ctx context.Context, id int64) (*domain.Cart, error) {
	cart, err := scanCart(c.db.QueryRow(ctx, `SELECT id, user_id, total FROM "Cart" WHERE id = $1`, id))
	if err != nil {
		return nil, convertErr(err, "finding cart %d", id)
	}
	return cart, nil
}

func (c *CartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := scanCart(c.db.QueryRow(ctx, `SELECT id, user_id, total FROM "Cart" WHERE user_id = $1`, userID))
	if err != nil {
		return nil, convertErr(err, "finding cart of user %s", userID)
	}
	return cart, nil
}

func (c *CartRepository) UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	tag, err := c.db.Exec(ctx, `UPDATE "Cart" SET total = $2 WHERE id = $1`, id, total)
	if err != nil {
		return convertErr(err, "updating total of cart %d", id)
	}
	return notFoundIfNoRows(tag, "updating total of cart %d", id)
}

func (c *CartRepository) Delete(ctx context.Context, id int64) error {
	tag, err := c.db.Exec(ctx, `DELETE FROM "Cart" WHERE id = $1`, id)
	if err != nil {
		return convertErr(err, "deleting cart %d", id)
	}
	return notFoundIfNoRows(tag, "deleting cart %d", id)
}

func (c *CartRepository) ListIDs(ctx context.Context, afterID int64, limit uint) ([]int64, error) {
	rows, err := c.db.Query(ctx,
		`SELECT id FROM "Cart" WHERE id > $1 ORDER BY id LIMIT $2`,
		afterID, int64(limit), //nolint:gosec
	)
	if err != nil {
		return nil, convertErr(err, "listing cart ids after %d", afterID)
	}
	ids, collectErr := pgx.CollectRows(rows, pgx.RowTo[int64])
	if collectErr != nil {
		return nil, convertErr(collectErr, "listing cart ids after %d", afterID)
	}
	return ids, nil
}

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var cart domain.Cart
	if err := row.Scan(&cart.ID, &cart.UserID, &cart.Total); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &cart, nil
}
