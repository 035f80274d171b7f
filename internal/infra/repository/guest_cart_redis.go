package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	repo "app/internal/repository"

	"github.com/redis/go-redis/v9"
)

// 未ログインカートの保持期限
const guestCartTTL = 7 * 24 * time.Hour

type GuestCartRedisStore struct {
	rdb *redis.Client
}

// DI
func NewGuestCartRedisStore(rdb *redis.Client) *GuestCartRedisStore {
	return &GuestCartRedisStore{rdb: rdb}
}

func guestCartKey(token string) string {
	return fmt.Sprintf("guest-cart:%s", token)
}

func (s *GuestCartRedisStore) Get(ctx context.Context, token string) (repo.GuestCart, error) {
	data, err := s.rdb.Get(ctx, guestCartKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return repo.GuestCart{}, repo.ErrNotFound
	}
	if err != nil {
		return repo.GuestCart{}, err
	}

	var cart repo.GuestCart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return repo.GuestCart{}, err
	}
	return cart, nil
}

func (s *GuestCartRedisStore) Save(ctx context.Context, token string, cart repo.GuestCart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, guestCartKey(token), data, guestCartTTL).Err()
}

func (s *GuestCartRedisStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, guestCartKey(token)).Err()
}
