// Package registry реализует долговечный реестр push-токенов в Redis.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ключ множества с токенами устройств. Значения-флаги не нужны:
// сигналом служит само присутствие токена в множестве.
const tokenSetKey = "push:tokens"

// TokenRegistry хранит зарегистрированные токены устройств.
// Запись идемпотентна, удаление токенов не предусмотрено.
type TokenRegistry struct {
	rdb *redis.Client
}

// New подключается к Redis по указанному адресу и проверяет соединение.
func New(addr string) (*TokenRegistry, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &TokenRegistry{rdb: rdb}, nil
}

// Put регистрирует токен устройства. Повторная запись того же токена безвредна.
func (r *TokenRegistry) Put(ctx context.Context, token string) error {
	if err := r.rdb.SAdd(ctx, tokenSetKey, token).Err(); err != nil {
		return fmt.Errorf("sadd token: %w", err)
	}
	return nil
}

// List возвращает все зарегистрированные токены. Множество читается целиком:
// рассылка всегда идёт по полному списку.
func (r *TokenRegistry) List(ctx context.Context) ([]string, error) {
	tokens, err := r.rdb.SMembers(ctx, tokenSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers tokens: %w", err)
	}
	return tokens, nil
}

// Close закрывает соединение с Redis.
func (r *TokenRegistry) Close() error {
	return r.rdb.Close()
}
