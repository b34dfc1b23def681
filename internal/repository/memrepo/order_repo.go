package memrepo

import (
	"context"
	"sort"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/google/uuid"
)

type OrderRepository struct {
	store *Store
	tx    *memTx
}

func (o *OrderRepository) Create(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error) {
	order := domain.Order{ID: args.ID, UserID: args.UserID, Total: args.Total, Date: args.Date}
	err := o.store.write(ctx, o.tx, []string{orderKey(args.ID)}, func(tx *memTx) error {
		if !o.store.users.has(tx.id, args.UserID) {
			return wrap(domain.ErrForeignKey, "creating order %d", args.ID)
		}
		if o.store.orders.has(tx.id, args.ID) {
			return wrap(domain.ErrDuplicateKey, "creating order %d", args.ID)
		}
		o.store.orders.put(tx, order.ID, order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (o *OrderRepository) CopyItemsFromCart(ctx context.Context, orderID, cartID int64) error {
	return o.store.write(ctx, o.tx, []string{orderKey(orderID)}, func(tx *memTx) error {
		if !o.store.orders.has(tx.id, orderID) {
			return wrap(domain.ErrForeignKey, "copying items of cart %d into order %d", cartID, orderID)
		}
		var items []domain.CartItem
		o.store.cartItems.scan(tx.id, func(key itemKey, quantity int32) {
			if key.parentID == cartID {
				items = append(items, domain.CartItem{CartID: cartID, MovieID: key.movieID, Quantity: quantity})
			}
		})
		for _, item := range items {
			target := itemKey{parentID: orderID, movieID: item.MovieID}
			if o.store.orderItems.has(tx.id, target) {
				return wrap(domain.ErrDuplicateKey, "copying items of cart %d into order %d", cartID, orderID)
			}
			o.store.orderItems.put(tx, target, item.Quantity)
		}
		return nil
	})
}

func (o *OrderRepository) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	var (
		order domain.Order
		ok    bool
	)
	o.store.read(o.tx, func(txID int64) { order, ok = o.store.orders.get(txID, id) })
	if !ok {
		return nil, wrap(domain.ErrRecordNotFound, "finding order %d", id)
	}
	return &order, nil
}

func (o *OrderRepository) ListByUserID(_ context.Context, userID uuid.UUID) ([]domain.Order, error) {
	var orders []domain.Order
	o.store.read(o.tx, func(txID int64) {
		o.store.orders.scan(txID, func(_ int64, order domain.Order) {
			if order.UserID == userID {
				orders = append(orders, order)
			}
		})
	})
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].Date.Equal(orders[j].Date) {
			return orders[i].Date.After(orders[j].Date)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders, nil
}

// ListSales заказы года year юзеров с национальностью country по возрастанию даты.
func (o *OrderRepository) ListSales(_ context.Context, year int32, country string) ([]domain.Sale, error) {
	var sales []domain.Sale
	o.store.read(o.tx, func(txID int64) {
		o.store.orders.scan(txID, func(_ int64, order domain.Order) {
			if int32(order.Date.UTC().Year()) != year { //nolint:gosec
				return
			}
			user, ok := o.store.users.get(txID, order.UserID)
			if !ok || user.Nationality != country {
				return
			}
			sales = append(sales, domain.Sale{
				OrderID:  order.ID,
				Date:     order.Date,
				Total:    order.Total,
				Paid:     order.Paid,
				UserName: user.Name,
			})
		})
	})
	sort.Slice(sales, func(i, j int) bool {
		if !sales[i].Date.Equal(sales[j].Date) {
			return sales[i].Date.Before(sales[j].Date)
		}
		return sales[i].OrderID < sales[j].OrderID
	})
	return sales, nil
}

func (o *OrderRepository) Exists(_ context.Context, id int64) (bool, error) {
	var ok bool
	o.store.read(o.tx, func(txID int64) { ok = o.store.orders.has(txID, id) })
	return ok, nil
}

func (o *OrderRepository) MarkPaid(ctx context.Context, id int64) (*domain.Order, error) {
	var order domain.Order
	err := o.store.write(ctx, o.tx, []string{orderKey(id)}, func(tx *memTx) error {
		found, ok := o.store.orders.get(tx.id, id)
		if !ok || found.Paid {
			return wrap(domain.ErrRecordNotFound, "marking order %d paid", id)
		}
		found.Paid = true
		o.store.orders.put(tx, id, found)
		order = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (o *OrderRepository) ListItems(_ context.Context, orderID int64) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	o.store.read(o.tx, func(txID int64) {
		o.store.orderItems.scan(txID, func(key itemKey, quantity int32) {
			if key.parentID == orderID {
				items = append(items, domain.OrderItem{OrderID: orderID, MovieID: key.movieID, Quantity: quantity})
			}
		})
	})
	sort.Slice(items, func(i, j int) bool { return items[i].MovieID < items[j].MovieID })
	return items, nil
}
