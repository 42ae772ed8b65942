package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore хранит документы в Redis и рассылает изменения через pub/sub.
type RedisStore struct {
	client *redis.Client
	origin string
	prefix string
}

// NewRedisStore подключается к Redis по адресу addr.
func NewRedisStore(addr, origin string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{
		client: client,
		origin: origin,
		prefix: "cloverleaf:",
	}, nil
}

// Get возвращает значение ключа.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

// Set сохраняет значение и публикует изменение в одной транзакции MULTI/EXEC.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	payload, err := r.changePayload(key)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.prefix+key, value, 0)
		pipe.Publish(ctx, r.channel(), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete удаляет ключ.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	payload, err := r.changePayload(key)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.prefix+key)
		pipe.Publish(ctx, r.channel(), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Watch подписывается на канал изменений до отмены контекста.
func (r *RedisStore) Watch(ctx context.Context, fn func(Change)) error {
	sub := r.client.Subscribe(ctx, r.channel())
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("change channel closed")
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				continue
			}
			fn(c)
		}
	}
}

// Close закрывает соединения с Redis.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) channel() string {
	return r.prefix + changesChannel
}

func (r *RedisStore) changePayload(key string) (string, error) {
	payload, err := json.Marshal(Change{Key: key, Origin: r.origin})
	if err != nil {
		return "", fmt.Errorf("encode change: %w", err)
	}
	return string(payload), nil
}
