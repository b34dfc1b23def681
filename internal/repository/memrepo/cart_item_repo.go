package memrepo

import (
	"context"
	"sort"

	"github.com/fsdevblog/moviestore/internal/domain"
)

type CartItemRepository struct {
	store *Store
	tx    *memTx
}

func (c *CartItemRepository) Find(ctx context.Context, cartID, movieID int64) (*domain.CartItem, error) {
	var item domain.CartItem
	err := c.store.write(ctx, c.tx, []string{cartItemsKey(cartID)}, func(tx *memTx) error {
		quantity, ok := c.store.cartItems.get(tx.id, itemKey{parentID: cartID, movieID: movieID})
		if !ok {
			return wrap(domain.ErrRecordNotFound, "finding item %d of cart %d", movieID, cartID)
		}
		item = domain.CartItem{CartID: cartID, MovieID: movieID, Quantity: quantity}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *CartItemRepository) Insert(ctx context.Context, item domain.CartItem) error {
	return c.store.write(ctx, c.tx, []string{cartItemsKey(item.CartID)}, func(tx *memTx) error {
		if item.Quantity <= 0 {
			return wrap(domain.ErrUnknown, "inserting item %d into cart %d: quantity check", item.MovieID, item.CartID)
		}
		if !c.store.carts.has(tx.id, item.CartID) || !c.store.movies.has(tx.id, item.MovieID) {
			return wrap(domain.ErrForeignKey, "inserting item %d into cart %d", item.MovieID, item.CartID)
		}
		key := itemKey{parentID: item.CartID, movieID: item.MovieID}
		if c.store.cartItems.has(tx.id, key) {
			return wrap(domain.ErrDuplicateKey, "inserting item %d into cart %d", item.MovieID, item.CartID)
		}
		c.store.cartItems.put(tx, key, item.Quantity)
		return nil
	})
}

func (c *CartItemRepository) UpdateQuantity(ctx context.Context, cartID, movieID int64, quantity int32) (int32, error) {
	var old int32
	err := c.store.write(ctx, c.tx, []string{cartItemsKey(cartID)}, func(tx *memTx) error {
		if quantity <= 0 {
			return wrap(domain.ErrUnknown, "updating item %d of cart %d: quantity check", movieID, cartID)
		}
		key := itemKey{parentID: cartID, movieID: movieID}
		prev, ok := c.store.cartItems.get(tx.id, key)
		if !ok {
			return wrap(domain.ErrRecordNotFound, "updating item %d of cart %d", movieID, cartID)
		}
		c.store.cartItems.put(tx, key, quantity)
		old = prev
		return nil
	})
	return old, err
}

func (c *CartItemRepository) Delete(ctx context.Context, cartID, movieID int64) (int32, error) {
	var old int32
	err := c.store.write(ctx, c.tx, []string{cartItemsKey(cartID)}, func(tx *memTx) error {
		key := itemKey{parentID: cartID, movieID: movieID}
		prev, ok := c.store.cartItems.get(tx.id, key)
		if !ok {
			return wrap(domain.ErrRecordNotFound, "deleting item %d of cart %d", movieID, cartID)
		}
		c.store.cartItems.remove(tx, key)
		old = prev
		return nil
	})
	return old, err
}

// DeleteByCartID удаляет все позиции корзины и возвращает их, отсортированными по id фильма.
func (c *CartItemRepository) DeleteByCartID(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	var items []domain.CartItem
	err := c.store.write(ctx, c.tx, []string{cartItemsKey(cartID)}, func(tx *memTx) error {
		c.store.cartItems.scan(tx.id, func(key itemKey, quantity int32) {
			if key.parentID == cartID {
				items = append(items, domain.CartItem{CartID: cartID, MovieID: key.movieID, Quantity: quantity})
			}
		})
		for _, item := range items {
			c.store.cartItems.remove(tx, itemKey{parentID: cartID, movieID: item.MovieID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].MovieID < items[j].MovieID })
	return items, nil
}

func (c *CartItemRepository) ListLines(_ context.Context, cartID int64) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	c.store.read(c.tx, func(txID int64) {
		c.store.cartItems.scan(txID, func(key itemKey, quantity int32) {
			if key.parentID != cartID {
				return
			}
			movie, _ := c.store.movies.get(txID, key.movieID)
			lines = append(lines, domain.CartLine{
				MovieID:  key.movieID,
				Title:    movie.Title,
				Price:    movie.Price,
				Quantity: quantity,
			})
		})
	})
	sort.Slice(lines, func(i, j int) bool { return lines[i].MovieID < lines[j].MovieID })
	return lines, nil
}
