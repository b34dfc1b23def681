package pgrepo

import (
	"context"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, user_id, total, date, paid`

type OrderRepository struct {
	db uow.DBTX
}

func NewOrderRepository(db uow.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create создает неоплаченный заказ. Если заказ с таким id уже есть, возвращает domain.ErrDuplicateKey.
func (o *OrderRepository) Create(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error) {
	order, err := scanOrder(o.db.QueryRow(ctx, `
		INSERT INTO "Order" (id, user_id, total, date, paid)
		VALUES ($1, $2, $3, $4, false)
		RETURNING `+orderColumns,
		args.ID, args.UserID, args.Total, args.Date,
	))
	if err != nil {
		return nil, convertErr(err, "creating order %d", args.ID)
	}
	return order, nil
}

// CopyItemsFromCart копирует позиции корзины cartID в позиции заказа orderID.
func (o *OrderRepository) CopyItemsFromCart(ctx context.Context, orderID, cartID int64) error {
	_, err := o.db.Exec(ctx, `
		INSERT INTO "OrderItem" (order_id, movie_id, quantity)
		SELECT $1, movie_id, quantity FROM "CartItem" WHERE cart_id = $2`,
		orderID, cartID,
	)
	if err != nil {
		return convertErr(err, "copying items of cart %d into order %d", cartID, orderID)
	}
	return nil
}

func (o *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := scanOrder(o.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM "Order" WHERE id = $1`, id))
	if err != nil {
		return nil, convertErr(err, "finding order %d", id)
	}
	return order, nil
}

// ListByUserID заказы юзера, новые первыми.
func (o *OrderRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	rows, err := o.db.Query(ctx,
		`SELECT `+orderColumns+` FROM "Order" WHERE user_id = $1 ORDER BY date DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, convertErr(err, "listing orders of user %s", userID)
	}
	orders, collectErr := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Order])
	if collectErr != nil {
		return nil, convertErr(collectErr, "listing orders of user %s", userID)
	}
	return orders, nil
}

// ListSales заказы года year (по UTC) юзеров с национальностью country по возрастанию даты.
func (o *OrderRepository) ListSales(ctx context.Context, year int32, country string) ([]domain.Sale, error) {
	rows, err := o.db.Query(ctx, `
		SELECT o.id, o.date, o.total, o.paid, u.name
		FROM "Order" o JOIN "User" u ON u.id = o.user_id
		WHERE EXTRACT(YEAR FROM o.date AT TIME ZONE 'UTC')::integer = $1 AND u.nationality = $2
		ORDER BY o.date, o.id`,
		year, country,
	)
	if err != nil {
		return nil, convertErr(err, "listing sales of %d in %s", year, country)
	}
	sales, collectErr := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Sale])
	if collectErr != nil {
		return nil, convertErr(collectErr, "listing sales of %d in %s", year, country)
	}
	return sales, nil
}

func (o *OrderRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := o.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM "Order" WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, convertErr(err, "checking order %d", id)
	}
	return exists, nil
}

// MarkPaid переводит заказ из paid = false в paid = true. Если заказа нет или он уже оплачен, возвращает
// domain.ErrRecordNotFound: переход не состоялся.
func (o *OrderRepository) MarkPaid(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := scanOrder(o.db.QueryRow(ctx,
		`UPDATE "Order" SET paid = true WHERE id = $1 AND paid = false RETURNING `+orderColumns,
		id,
	))
	if err != nil {
		return nil, convertErr(err, "marking order %d paid", id)
	}
	return order, nil
}

func (o *OrderRepository) ListItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := o.db.Query(ctx,
		`SELECT order_id, movie_id, quantity FROM "OrderItem" WHERE order_id = $1 ORDER BY movie_id`,
		orderID,
	)
	if err != nil {
		return nil, convertErr(err, "listing items of order %d", orderID)
	}
	items, collectErr := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.OrderItem])
	if collectErr != nil {
		return nil, convertErr(collectErr, "listing items of order %d", orderID)
	}
	return items, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	if err := row.Scan(&order.ID, &order.UserID, &order.Total, &order.Date, &order.Paid); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &order, nil
}
