// Package cache кэш карточек фильмов в Redis. Кэш необязателен: при недоступности Redis сервис
// читает фильмы напрямую из хранилища.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

const (
	DefaultTTL = 5 * time.Minute
	keyPrefix  = "moviestore:movie:"
)

type MovieCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewMovieCache(rdb *redis.Client, ttl time.Duration) *MovieCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MovieCache{rdb: rdb, ttl: ttl}
}

// Connect создает клиента и проверяет соединение коротким ping.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (c *MovieCache) Get(ctx context.Context, id int64) (*domain.Movie, error) {
	data, err := c.rdb.Get(ctx, movieKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get movie %d: %w", id, err)
	}
	var movie domain.Movie
	if err = json.Unmarshal(data, &movie); err != nil {
		return nil, fmt.Errorf("decoding cached movie %d: %w", id, err)
	}
	return &movie, nil
}

func (c *MovieCache) Set(ctx context.Context, movie *domain.Movie) error {
	data, err := json.Marshal(movie)
	if err != nil {
		return fmt.Errorf("encoding movie %d: %w", movie.ID, err)
	}
	if err = c.rdb.Set(ctx, movieKey(movie.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set movie %d: %w", movie.ID, err)
	}
	return nil
}

func (c *MovieCache) Invalidate(ctx context.Context, id int64) error {
	if err := c.rdb.Del(ctx, movieKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del movie %d: %w", id, err)
	}
	return nil
}

func movieKey(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}
