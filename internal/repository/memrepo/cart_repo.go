package memrepo

import (
	"context"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartRepository struct {
	store *Store
	tx    *memTx
}

func (c *CartRepository) Create(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart := domain.Cart{ID: c.store.cartSeq.Add(1), UserID: userID, Total: decimal.Zero}
	keys := []string{userCartKey(userID), cartKey(cart.ID)}
	err := c.store.write(ctx, c.tx, keys, func(tx *memTx) error {
		if !c.store.users.has(tx.id, userID) {
			return wrap(domain.ErrForeignKey, "creating cart for user %s", userID)
		}
		owned := c.store.carts.keys(tx.id, func(_ int64, existing domain.Cart) bool {
			return existing.UserID == userID
		})
		if len(owned) > 0 {
			return wrap(domain.ErrDuplicateKey, "creating cart for user %s", userID)
		}
		c.store.carts.put(tx, cart.ID, cart)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *CartRepository) FindByID(_ context.Context, id int64) (*domain.Cart, error) {
	var (
		cart domain.Cart
		ok   bool
	)
	c.store.read(c.tx, func(txID int64) { cart, ok = c.store.carts.get(txID, id) })
	if !ok {
		return nil, wrap(domain.ErrRecordNotFound, "finding cart %d", id)
	}
	return &cart, nil
}

func (c *CartRepository) FindByUserID(_ context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var found *domain.Cart
	c.store.read(c.tx, func(txID int64) {
		c.store.carts.scan(txID, func(_ int64, cart domain.Cart) {
			if cart.UserID == userID {
				found = &cart
			}
		})
	})
	if found == nil {
		return nil, wrap(domain.ErrRecordNotFound, "finding cart of user %s", userID)
	}
	return found, nil
}

func (c *CartRepository) UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	return c.store.write(ctx, c.tx, []string{cartKey(id)}, func(tx *memTx) error {
		cart, ok := c.store.carts.get(tx.id, id)
		if !ok {
			return wrap(domain.ErrRecordNotFound, "updating total of cart %d", id)
		}
		cart.Total = total
		c.store.carts.put(tx, id, cart)
		return nil
	})
}

// Delete удаляет корзину вместе с оставшимися позициями, как каскадный внешний ключ в Postgres.
func (c *CartRepository) Delete(ctx context.Context, id int64) error {
	return c.store.write(ctx, c.tx, []string{cartItemsKey(id), cartKey(id)}, func(tx *memTx) error {
		if !c.store.carts.has(tx.id, id) {
			return wrap(domain.ErrRecordNotFound, "deleting cart %d", id)
		}
		items := c.store.cartItems.keys(tx.id, func(key itemKey, _ int32) bool { return key.parentID == id })
		for _, key := range items {
			c.store.cartItems.remove(tx, key)
		}
		c.store.carts.remove(tx, id)
		return nil
	})
}

func (c *CartRepository) ListIDs(_ context.Context, afterID int64, limit uint) ([]int64, error) {
	var ids []int64
	c.store.read(c.tx, func(txID int64) {
		ids = c.store.carts.keys(txID, func(id int64, _ domain.Cart) bool { return id > afterID })
	})
	return firstIDs(ids, limit), nil
}
